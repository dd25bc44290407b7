package dummy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ServerConfig configures the stub reverse server. Fields are read from the
// environment by LoadConfig; command-line flags may override them afterwards.
type ServerConfig struct {
	Port int `env:"PORT" envDefault:"3000"`

	// FailEvery makes every Nth /reverse request answer 500. 0 disables it.
	FailEvery int `env:"FAIL_EVERY" envDefault:"0"`

	// Delay is added to every /reverse response.
	Delay time.Duration `env:"DELAY" envDefault:"0s"`
}

type reverseResponse struct {
	Input    string `json:"input"`
	Reversed string `json:"reversed"`
}

func LoadConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse server env: %w", err)
	}
	return cfg, nil
}

// Reverse reverses s by runes, so multi-byte characters stay intact.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// NewRouter builds the stub server's routes:
//
//	GET /reverse?input=<text>  -> {"input": "<text>", "reversed": "<txet>"}
//	GET /                      -> plain text liveness message
func NewRouter(cfg ServerConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	var served atomic.Int64

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/reverse", func(w http.ResponseWriter, req *http.Request) {
		n := served.Add(1)
		if cfg.Delay > 0 {
			time.Sleep(cfg.Delay)
		}
		if cfg.FailEvery > 0 && n%int64(cfg.FailEvery) == 0 {
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}

		input := req.URL.Query().Get("input")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reverseResponse{Input: input, Reversed: Reverse(input)}); err != nil {
			logger.Error("failed to encode response", zap.Error(err))
		}
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Reverse server is running"))
	})

	return r
}

// Start binds cfg.Port and serves NewRouter on it in the background. A bind
// failure is returned directly; later serve failures arrive on the returned
// channel, which is closed once the server stops.
func Start(cfg ServerConfig, logger *zap.Logger) (*http.Server, <-chan error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("👻 Reverse server running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: /reverse?input=<text>, /")

	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.String("addr", addr), zap.Error(err))
			errc <- err
		}
	}()

	return server, errc, nil
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("request processed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
