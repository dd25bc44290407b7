package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"revbench/internal/payload"
	"revbench/internal/report"
	"revbench/internal/runner"
	"revbench/internal/storage"
	"revbench/internal/styles"

	"github.com/charmbracelet/bubbles/progress"
	"go.uber.org/zap"
)

// ErrUsage marks invalid command-line input. It is always returned before
// any request is sent.
var ErrUsage = errors.New("usage error")

// ValidCounts are the only supported run sizes.
var ValidCounts = []int{10, 10000}

// DefaultModes are the environment labels accepted when none are configured.
var DefaultModes = []string{"dockerswarm", "kubernetes"}

// DefaultIdentifier prefixes every result file name.
const DefaultIdentifier = "DA24C021"

// Request is one validated run invocation.
type Request struct {
	BaseURL string
	Mode    string
	Count   int
}

// Options carries everything Start needs besides the request itself.
type Options struct {
	Request

	Identifier  string
	OutDir      string
	Seeds       []string
	TimeoutSec  int
	Headers     map[string]string
	SummaryPath string // empty disables the summary file
}

// ParseArgs validates <url> <mode> <count>. Modes lists the accepted mode
// labels; DefaultModes is used when it is empty.
func ParseArgs(args []string, modes []string) (Request, error) {
	if len(modes) == 0 {
		modes = DefaultModes
	}
	if len(args) != 3 {
		return Request{}, fmt.Errorf("%w: expected 3 arguments <url> <%s> <%s>, got %d",
			ErrUsage, strings.Join(modes, "|"), joinInts(ValidCounts, "|"), len(args))
	}

	baseURL, mode, countStr := args[0], args[1], args[2]

	if _, err := runner.ReverseEndpoint(baseURL); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if strings.ContainsAny(mode, `/\`) || mode == "." || mode == ".." {
		return Request{}, fmt.Errorf("%w: mode %q must not contain a path separator", ErrUsage, mode)
	}
	if !slices.Contains(modes, mode) {
		return Request{}, fmt.Errorf("%w: mode must be one of %s, got %q", ErrUsage, strings.Join(modes, ", "), mode)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || !slices.Contains(ValidCounts, count) {
		return Request{}, fmt.Errorf("%w: count must be one of %s, got %q", ErrUsage, joinInts(ValidCounts, ", "), countStr)
	}

	return Request{BaseURL: baseURL, Mode: mode, Count: count}, nil
}

// Start runs the benchmark described by opts, writes the result file and,
// when configured, updates the summary file. Console output goes to out.
// It returns the path of the result file.
func Start(ctx context.Context, opts Options, out io.Writer, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Seeds) == 0 {
		opts.Seeds = payload.DefaultSeeds
	}
	if opts.Identifier == "" {
		opts.Identifier = DefaultIdentifier
	}

	printHeader(out, opts)

	seq := payload.Generate(opts.Seeds, opts.Count)

	r := runner.NewRunner(runner.Config{
		BaseURL:    opts.BaseURL,
		TimeoutSec: opts.TimeoutSec,
		Headers:    opts.Headers,
	}, logger)
	r.OnMeasurement = progressPrinter(out, len(seq))

	results, summary, err := r.Run(ctx, seq)
	if err != nil {
		fmt.Fprintln(out)
		return "", fmt.Errorf("run aborted, no result file written: %w", err)
	}

	w := report.Writer{Dir: opts.OutDir, Identifier: opts.Identifier}
	path, err := w.Write(opts.Mode, opts.Count, results, summary)
	if err != nil {
		return "", err
	}

	printSummary(out, summary)

	if opts.SummaryPath != "" {
		if err := appendSummary(opts, summary); err != nil {
			logger.Warn("summary file not updated", zap.String("path", opts.SummaryPath), zap.Error(err))
			fmt.Fprintln(out, styles.Warn.Render("⚠️  summary not updated: "+err.Error()))
		}
	}

	fmt.Fprintf(out, "%s\n", styles.Success.Render(fmt.Sprintf("✅ Wrote %s with average %.2f ms", w.Filename(opts.Mode, opts.Count), summary.AverageLatencyMs)))
	return path, nil
}

func appendSummary(opts Options, summary runner.Summary) error {
	store, err := storage.NewSummaryStore(opts.SummaryPath)
	if err != nil {
		return err
	}
	return store.Upsert(storage.NewSummaryRow(time.Now(), opts.Mode, opts.BaseURL, summary))
}

func printHeader(out io.Writer, opts Options) {
	fmt.Fprintf(out, "\n%s\n", styles.Title.Render("🚀 STARTING REVERSE BENCHMARK"))
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintln(out, styles.KeyValue("Target URL ", opts.BaseURL))
	fmt.Fprintln(out, styles.KeyValue("Mode       ", opts.Mode))
	fmt.Fprintln(out, styles.KeyValue("Requests   ", strconv.Itoa(opts.Count)))
	fmt.Fprintln(out, styles.KeyValue("Seeds      ", strconv.Itoa(len(opts.Seeds))))
	timeout := "none"
	if opts.TimeoutSec > 0 {
		timeout = fmt.Sprintf("%ds", opts.TimeoutSec)
	}
	fmt.Fprintln(out, styles.KeyValue("Timeout    ", timeout))
	fmt.Fprintf(out, "======================================================================\n\n")
}

// progressPrinter redraws the progress line roughly every percent.
func progressPrinter(out io.Writer, total int) func(int, runner.Measurement) {
	step := total / 100
	if step < 1 {
		step = 1
	}
	bar := progress.New(
		progress.WithGradient(string(styles.ColorPrimary), string(styles.ColorSecondary)),
		progress.WithWidth(20),
		progress.WithoutPercentage(),
	)
	var sum float64
	return func(i int, m runner.Measurement) {
		sum += m.LatencyMs
		done := i + 1
		if done%step != 0 && done != total {
			return
		}
		pct := float64(done) / float64(total)
		fmt.Fprintf(out, "\r%s %3.0f%% | %d/%d | Avg: %.2f ms",
			bar.ViewAs(pct), pct*100, done, total, sum/float64(done))
	}
}

func printSummary(out io.Writer, s runner.Summary) {
	fmt.Fprintf(out, "\n\n%s\n", styles.Title.Render("📊 RESULTS"))
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Requests       : %d\n", s.Count)
	fmt.Fprintf(out, "Total Duration : %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Actual RPS     : %.2f\n", s.AchievedRPS())
	fmt.Fprintf(out, "\n⏱️  RESPONSE TIMES (ms)\n")
	fmt.Fprintf(out, "   Avg : %.2f\n", s.AverageLatencyMs)
	fmt.Fprintf(out, "   Min : %.2f\n", s.MinMs)
	fmt.Fprintf(out, "   P50 : %.2f\n", s.P50Ms)
	fmt.Fprintf(out, "   P90 : %.2f\n", s.P90Ms)
	fmt.Fprintf(out, "   P95 : %.2f\n", s.P95Ms)
	fmt.Fprintf(out, "   P99 : %.2f\n", s.P99Ms)
	fmt.Fprintf(out, "   Max : %.2f\n", s.MaxMs)
	fmt.Fprintf(out, "======================================================================\n")
}

func joinInts(vals []int, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
