package stats

// Stats aggregates the latencies of a single sequential run. The average is
// computed from the exact running total; the histogram only feeds percentiles.
type Stats struct {
	Requests uint64
	TotalMs  float64

	Latency *Histogram
}

func NewStats() *Stats {
	return &Stats{Latency: NewHistogram()}
}

// Add records one completed request.
func (s *Stats) Add(latencyMs float64) error {
	s.Requests++
	s.TotalMs += latencyMs
	return s.Latency.RecordMs(latencyMs)
}

// AverageMs returns TotalMs / Requests, or 0 before any request.
func (s *Stats) AverageMs() float64 {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalMs / float64(s.Requests)
}

func (s *Stats) Reset() {
	s.Requests = 0
	s.TotalMs = 0
	s.Latency.Reset()
}

func (s *Stats) GetP50() float64 { return s.Latency.QuantileMs(50) }
func (s *Stats) GetP90() float64 { return s.Latency.QuantileMs(90) }
func (s *Stats) GetP95() float64 { return s.Latency.QuantileMs(95) }
func (s *Stats) GetP99() float64 { return s.Latency.QuantileMs(99) }
