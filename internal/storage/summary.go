package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"revbench/internal/runner"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SummaryHeader is the column layout of the summary file.
var SummaryHeader = []string{
	"timestamp", "mode", "url", "count", "wall_ms", "achieved_rps",
	"avg_ms", "min_ms", "p50_ms", "p90_ms", "p95_ms", "p99_ms", "max_ms",
}

const (
	colMode = 1
	colURL  = 2
)

// SummaryRow is one run in the summary file.
type SummaryRow struct {
	Timestamp   time.Time
	Mode        string
	URL         string
	Count       int
	WallMs      int64
	AchievedRPS float64
	AvgMs       float64
	MinMs       float64
	P50Ms       float64
	P90Ms       float64
	P95Ms       float64
	P99Ms       float64
	MaxMs       float64
}

func NewSummaryRow(ts time.Time, mode, url string, s runner.Summary) SummaryRow {
	return SummaryRow{
		Timestamp:   ts,
		Mode:        mode,
		URL:         url,
		Count:       s.Count,
		WallMs:      s.Elapsed.Milliseconds(),
		AchievedRPS: s.AchievedRPS(),
		AvgMs:       s.AverageLatencyMs,
		MinMs:       s.MinMs,
		P50Ms:       s.P50Ms,
		P90Ms:       s.P90Ms,
		P95Ms:       s.P95Ms,
		P99Ms:       s.P99Ms,
		MaxMs:       s.MaxMs,
	}
}

// Key identifies the (mode, url) pair a row belongs to. Mode is case-insensitive.
func (r SummaryRow) Key() string {
	return rowKey(r.Mode, r.URL)
}

func (r SummaryRow) record() []string {
	return []string{
		r.Timestamp.UTC().Format(timestampLayout),
		r.Mode,
		r.URL,
		strconv.Itoa(r.Count),
		strconv.FormatInt(r.WallMs, 10),
		formatMs(r.AchievedRPS),
		formatMs(r.AvgMs),
		formatMs(r.MinMs),
		formatMs(r.P50Ms),
		formatMs(r.P90Ms),
		formatMs(r.P95Ms),
		formatMs(r.P99Ms),
		formatMs(r.MaxMs),
	}
}

// SummaryStore keeps one tab-separated row per (mode, url), latest run last.
type SummaryStore struct {
	mu       sync.Mutex
	filePath string
}

// NewSummaryStore creates the parent directory of path if needed.
func NewSummaryStore(path string) (*SummaryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create summary dir: %w", err)
	}
	return &SummaryStore{filePath: path}, nil
}

func (s *SummaryStore) Path() string {
	return s.filePath
}

// Upsert replaces any row with the same key and appends row at the end.
// Rows that do not match the header width are dropped, as are duplicates.
func (s *SummaryStore) Upsert(row SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}

	target := row.Key()
	records := [][]string{SummaryHeader}
	seen := make(map[string]struct{})
	for _, rec := range existing {
		if len(rec) != len(SummaryHeader) {
			continue
		}
		k := rowKey(rec[colMode], rec[colURL])
		if k == target {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		records = append(records, rec)
	}
	records = append(records, row.record())

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	if err := os.WriteFile(s.filePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write summary %s: %w", s.filePath, err)
	}
	return nil
}

// List returns the stored rows without the header.
func (s *SummaryStore) List() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SummaryStore) load() ([][]string, error) {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", s.filePath, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", s.filePath, err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

func rowKey(mode, url string) string {
	return strings.ToLower(mode) + "|" + url
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
