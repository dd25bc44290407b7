package runner

import (
	"time"
)

type Config struct {
	BaseURL    string
	TimeoutSec int // 0 keeps the transport default (no client timeout)
	Headers    map[string]string
}

// Measurement is the outcome of one /reverse round trip.
type Measurement struct {
	Original  string  `json:"original"`
	Reversed  string  `json:"reversed"`
	LatencyMs float64 `json:"latency_ms"`
}

// Summary aggregates a completed run.
type Summary struct {
	AverageLatencyMs float64
	Count            int

	MinMs float64
	P50Ms float64
	P90Ms float64
	P95Ms float64
	P99Ms float64
	MaxMs float64

	Elapsed time.Duration // wall time of the whole run
}

// AchievedRPS is the number of completed requests per second of wall time.
func (s Summary) AchievedRPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Count) / s.Elapsed.Seconds()
}
