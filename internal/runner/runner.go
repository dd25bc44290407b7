package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revbench/internal/stats"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reversePath = "reverse"

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 256

// Runner sends payloads to {BaseURL}/reverse one at a time and measures
// each round trip. A Runner must not be used from multiple goroutines.
type Runner struct {
	Cfg     Config
	Stats   *stats.Stats
	Client  *http.Client
	Results []Measurement

	// OnMeasurement, if set, is called after each successful request on the
	// runner's goroutine. i is the zero-based position in the sequence.
	OnMeasurement func(i int, m Measurement)

	logger *zap.Logger
}

func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 1

	client := &http.Client{Transport: t}
	if cfg.TimeoutSec > 0 {
		client.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		Cfg:    cfg,
		Stats:  stats.NewStats(),
		Client: client,
		logger: logger,
	}
}

// Run sends every payload of seq in order and returns the measurements with
// their summary. The first transport failure aborts the run and no
// measurements are returned.
func (r *Runner) Run(ctx context.Context, seq []string) ([]Measurement, Summary, error) {
	if len(seq) == 0 {
		return nil, Summary{}, ErrEmptySequence
	}

	endpoint, err := ReverseEndpoint(r.Cfg.BaseURL)
	if err != nil {
		return nil, Summary{}, err
	}

	r.Stats.Reset()
	r.Results = make([]Measurement, 0, len(seq))

	log := r.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("endpoint", endpoint.String()),
	)
	log.Info("run started", zap.Int("count", len(seq)))

	start := time.Now()
	for i, input := range seq {
		m, err := r.measure(ctx, log, endpoint, i, input)
		if err != nil {
			r.Results = nil
			log.Error("run aborted", zap.Int("index", i), zap.Error(err))
			return nil, Summary{}, err
		}

		if err := r.Stats.Add(m.LatencyMs); err != nil {
			log.Warn("latency not recorded in histogram", zap.Float64("latency_ms", m.LatencyMs), zap.Error(err))
		}
		r.Results = append(r.Results, m)

		if r.OnMeasurement != nil {
			r.OnMeasurement(i, m)
		}
	}

	summary := Summary{
		AverageLatencyMs: r.Stats.AverageMs(),
		Count:            len(seq),
		MinMs:            r.Stats.Latency.MinMs(),
		P50Ms:            r.Stats.GetP50(),
		P90Ms:            r.Stats.GetP90(),
		P95Ms:            r.Stats.GetP95(),
		P99Ms:            r.Stats.GetP99(),
		MaxMs:            r.Stats.Latency.MaxMs(),
		Elapsed:          time.Since(start),
	}

	log.Info("run finished",
		zap.Int("count", summary.Count),
		zap.Float64("avg_ms", summary.AverageLatencyMs),
		zap.Duration("elapsed", summary.Elapsed),
	)

	return r.Results, summary, nil
}

func (r *Runner) measure(ctx context.Context, log *zap.Logger, endpoint *url.URL, index int, input string) (Measurement, error) {
	fail := func(status int, err error) (Measurement, error) {
		return Measurement{}, &TransportError{Index: index, Payload: input, Status: status, Err: err}
	}

	u := *endpoint
	u.RawQuery = url.Values{"input": {input}}.Encode()
	requestID := uuid.NewString()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range r.Cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fail(resp.StatusCode, fmt.Errorf("%w %s: %s", ErrUnexpectedStatus, resp.Status, body))
	}

	reversed, ok := ReversedField(body)
	latency := time.Since(start)

	if !ok {
		log.Debug("response has no string \"reversed\" field, using empty string",
			zap.String("request_id", requestID),
			zap.String("input", input),
		)
	}

	return Measurement{
		Original:  input,
		Reversed:  reversed,
		LatencyMs: float64(latency) / float64(time.Millisecond),
	}, nil
}

// ReverseEndpoint resolves {base}/reverse. The base must be an absolute
// http or https URL.
func ReverseEndpoint(base string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidBaseURL, base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w %q: want http(s)://host[:port]", ErrInvalidBaseURL, base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + reversePath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// ReversedField looks up the optional "reversed" string in a JSON object.
// A body that is not a JSON object, a missing key, or a non-string value all
// yield "" and false.
func ReversedField(body []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	raw, ok := fields["reversed"]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
