package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revbench/internal/dummy"
	"revbench/internal/payload"
	"revbench/internal/report"
	"revbench/internal/runner"
	"revbench/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		modes   []string
		want    Request
		wantErr bool
	}{
		{
			name: "ten requests",
			args: []string{"http://localhost:3000", "dockerswarm", "10"},
			want: Request{BaseURL: "http://localhost:3000", Mode: "dockerswarm", Count: 10},
		},
		{
			name: "ten thousand requests",
			args: []string{"https://svc.example.com", "kubernetes", "10000"},
			want: Request{BaseURL: "https://svc.example.com", Mode: "kubernetes", Count: 10000},
		},
		{
			name:  "custom modes",
			args:  []string{"http://localhost", "staging", "10"},
			modes: []string{"staging", "prod"},
			want:  Request{BaseURL: "http://localhost", Mode: "staging", Count: 10},
		},
		{name: "missing args", args: []string{"http://localhost:3000", "dockerswarm"}, wantErr: true},
		{name: "extra args", args: []string{"http://localhost:3000", "dockerswarm", "10", "x"}, wantErr: true},
		{name: "unsupported count", args: []string{"http://localhost:3000", "dockerswarm", "100"}, wantErr: true},
		{name: "non numeric count", args: []string{"http://localhost:3000", "dockerswarm", "ten"}, wantErr: true},
		{name: "unknown mode", args: []string{"http://localhost:3000", "nomad", "10"}, wantErr: true},
		{name: "default mode rejected by custom set", args: []string{"http://localhost", "kubernetes", "10"}, modes: []string{"staging"}, wantErr: true},
		{name: "mode with slash", args: []string{"http://localhost", "../evil", "10"}, modes: []string{"../evil"}, wantErr: true},
		{name: "mode with backslash", args: []string{"http://localhost", `a\b`, "10"}, modes: []string{`a\b`}, wantErr: true},
		{name: "relative url", args: []string{"localhost:3000", "dockerswarm", "10"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args, tt.modes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgs_InvalidURLKeepsCause(t *testing.T) {
	_, err := ParseArgs([]string{"ftp://x", "dockerswarm", "10"}, nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorIs(t, err, runner.ErrInvalidBaseURL)
}

func startServer(t *testing.T, cfg dummy.ServerConfig) string {
	t.Helper()
	srv := httptest.NewServer(dummy.NewRouter(cfg, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestStart_DetailedRun(t *testing.T) {
	dir := t.TempDir()
	baseURL := startServer(t, dummy.ServerConfig{})

	var out bytes.Buffer
	path, err := Start(context.Background(), Options{
		Request: Request{BaseURL: baseURL, Mode: "dockerswarm", Count: 10},
		OutDir:  dir,
	}, &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "DA24C021dockerswarm10.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 31)

	for i, seed := range payload.DefaultSeeds {
		assert.Equal(t, "Original: "+seed, lines[3*i])
		assert.Equal(t, "Reversed: "+dummy.Reverse(seed), lines[3*i+1])
		assert.Equal(t, "--------------------------------", lines[3*i+2])
	}
	assert.True(t, strings.HasPrefix(lines[30], "average_response_time="))
	assert.Contains(t, string(data), "Reversed: hL0Bw?7Qfk\n")
	assert.Contains(t, out.String(), "Wrote DA24C021dockerswarm10.txt with average")
}

func TestStart_SummaryOnlyRun(t *testing.T) {
	dir := t.TempDir()
	baseURL := startServer(t, dummy.ServerConfig{})

	path, err := Start(context.Background(), Options{
		Request:    Request{BaseURL: baseURL, Mode: "kubernetes", Count: 10000},
		Identifier: "RUN",
		OutDir:     dir,
	}, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "RUNkubernetes10000.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Equal(t, 1, strings.Count(content, "\n"))
	assert.True(t, strings.HasPrefix(content, "average_response_time="))
	assert.NotContains(t, content, "Original:")
	assert.NotContains(t, content, "Reversed:")
}

func TestStart_ServerErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	baseURL := startServer(t, dummy.ServerConfig{FailEvery: 3})

	_, err := Start(context.Background(), Options{
		Request: Request{BaseURL: baseURL, Mode: "dockerswarm", Count: 10},
		OutDir:  dir,
	}, &bytes.Buffer{}, nil)
	require.Error(t, err)

	var terr *runner.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, payload.DefaultSeeds[2], terr.Payload)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStart_Idempotent(t *testing.T) {
	baseURL := startServer(t, dummy.ServerConfig{})

	read := func() []string {
		dir := t.TempDir()
		path, err := Start(context.Background(), Options{
			Request: Request{BaseURL: baseURL, Mode: "dockerswarm", Count: 10},
			OutDir:  dir,
		}, &bytes.Buffer{}, nil)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var kept []string
		for _, line := range strings.Split(string(data), "\n") {
			if !strings.HasPrefix(line, "average_response_time=") {
				kept = append(kept, line)
			}
		}
		return kept
	}

	assert.Equal(t, read(), read())
}

func TestStart_CustomSeedsAndSummaryFile(t *testing.T) {
	dir := t.TempDir()
	baseURL := startServer(t, dummy.ServerConfig{})
	summaryPath := filepath.Join(dir, "viz", "summary.tsv")

	path, err := Start(context.Background(), Options{
		Request:     Request{BaseURL: baseURL, Mode: "kubernetes", Count: 10},
		Seeds:       []string{"abc", "xyz"},
		OutDir:      dir,
		SummaryPath: summaryPath,
	}, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "Original: abc\nReversed: cba\n"))
	assert.Equal(t, 5, strings.Count(string(data), "Original: xyz\nReversed: zyx\n"))

	store, err := storage.NewSummaryStore(summaryPath)
	require.NoError(t, err)
	rows, err := store.List()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kubernetes", rows[0][1])
	assert.Equal(t, baseURL, rows[0][2])
	assert.Equal(t, "10", rows[0][3])
}

func TestStart_WriteFailure(t *testing.T) {
	baseURL := startServer(t, dummy.ServerConfig{})

	_, err := Start(context.Background(), Options{
		Request: Request{BaseURL: baseURL, Mode: "dockerswarm", Count: 10},
		OutDir:  filepath.Join(t.TempDir(), "does-not-exist"),
	}, &bytes.Buffer{}, nil)

	var werr *report.WriteError
	assert.ErrorAs(t, err, &werr)
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	hook := progressPrinter(&out, 4)

	for i := 0; i < 4; i++ {
		hook(i, runner.Measurement{LatencyMs: 2})
	}

	lines := strings.Split(out.String(), "\r")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], " 50% | 2/4 | Avg: 2.00 ms")
	assert.Contains(t, lines[4], "100% | 4/4 | Avg: 2.00 ms")
}

func TestProgressPrinter_Throttles(t *testing.T) {
	var out bytes.Buffer
	hook := progressPrinter(&out, 1000)

	for i := 0; i < 1000; i++ {
		hook(i, runner.Measurement{LatencyMs: 1})
	}

	assert.Equal(t, 100, strings.Count(out.String(), "\r"))
	assert.True(t, strings.HasSuffix(out.String(), "100% | 1000/1000 | Avg: 1.00 ms"))
}
