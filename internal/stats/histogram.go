package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// highestTrackableUs bounds recorded latencies; slower requests are clamped.
const highestTrackableUs = int64(10 * time.Minute / time.Microsecond)

// Histogram records latencies in microseconds and reports them in
// milliseconds. It is not safe for concurrent use.
type Histogram struct {
	hist *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	// 1us to 10min, 3 significant figures
	return &Histogram{hist: hdrhistogram.New(1, highestTrackableUs, 3)}
}

// RecordMs records a latency given in milliseconds.
func (h *Histogram) RecordMs(ms float64) error {
	us := int64(ms * 1000)
	if us < 0 {
		us = 0
	}
	if us > highestTrackableUs {
		us = highestTrackableUs
	}
	return h.hist.RecordValue(us)
}

// QuantileMs returns the value at quantile q (0-100) in milliseconds.
func (h *Histogram) QuantileMs(q float64) float64 {
	return float64(h.hist.ValueAtQuantile(q)) / 1000.0
}

func (h *Histogram) MinMs() float64 {
	return float64(h.hist.Min()) / 1000.0
}

func (h *Histogram) MaxMs() float64 {
	return float64(h.hist.Max()) / 1000.0
}

func (h *Histogram) TotalCount() int64 {
	return h.hist.TotalCount()
}

func (h *Histogram) Reset() {
	h.hist.Reset()
}
