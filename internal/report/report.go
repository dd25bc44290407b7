package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"revbench/internal/runner"
)

// DetailedCount is the only run size whose artifact lists every measurement.
// Larger runs only get the average line.
const DetailedCount = 10

const separator = "--------------------------------"

// WriteError is returned when the artifact cannot be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write result file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer writes result artifacts named {Identifier}{mode}{count}.txt into Dir.
type Writer struct {
	Dir        string
	Identifier string
}

func (w Writer) Filename(mode string, count int) string {
	return w.Identifier + mode + strconv.Itoa(count) + ".txt"
}

func (w Writer) Path(mode string, count int) string {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, w.Filename(mode, count))
}

// Write renders the artifact and writes it in one go, replacing any
// existing file of the same name. It returns the path written.
func (w Writer) Write(mode string, count int, results []runner.Measurement, summary runner.Summary) (string, error) {
	path := w.Path(mode, count)
	if err := os.WriteFile(path, Render(count, results, summary), 0644); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// Render returns the artifact content. Per-measurement blocks are included
// only when count == DetailedCount.
func Render(count int, results []runner.Measurement, summary runner.Summary) []byte {
	var buf bytes.Buffer
	if count == DetailedCount {
		for _, m := range results {
			fmt.Fprintf(&buf, "Original: %s\n", m.Original)
			fmt.Fprintf(&buf, "Reversed: %s\n", m.Reversed)
			buf.WriteString(separator + "\n")
		}
	}
	fmt.Fprintf(&buf, "average_response_time=%s\n", FormatFloat(summary.AverageLatencyMs))
	return buf.Bytes()
}

// FormatFloat renders v with the fewest digits that round-trip exactly,
// never in exponent form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
