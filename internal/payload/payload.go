package payload

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoSeeds is returned when a seed file contains no usable lines.
var ErrNoSeeds = errors.New("no seed strings found")

// DefaultSeeds is the built-in seed set used when no seed file is given.
var DefaultSeeds = []string{
	"5PKOHcL6OuxRd0xXHQ",
	"JHfJtF8Q",
	"gZFEMlas2JA",
	"NkmPg9j7zMjgnV9",
	"lV0NTN5",
	"tcYvn336dS79R4l",
	"H497kD3k3V1",
	"5ygYRpEEN7sgyuS",
	"kF7ywn7gFk",
	"kfQ7?wB0Lh",
}

// Generate returns exactly count payloads by cycling through seeds, so the
// item at position i is seeds[i%len(seeds)]. A count equal to len(seeds)
// yields the seeds in their original order.
func Generate(seeds []string, count int) []string {
	if len(seeds) == 0 || count <= 0 {
		return []string{}
	}

	out := make([]string, count)
	for i := range out {
		out[i] = seeds[i%len(seeds)]
	}
	return out
}

// LoadSeeds reads seeds from a result-style file, taking the text of every
// "Original: <text>" line in order. Other lines are ignored.
func LoadSeeds(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var seeds []string
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Original:") {
			continue
		}
		_, text, _ := strings.Cut(line, ":")
		if text = strings.TrimSpace(text); text != "" {
			seeds = append(seeds, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan seed file '%s': %w", filename, err)
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoSeeds)
	}
	return seeds, nil
}
