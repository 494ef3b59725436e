package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/iphunt/internal/config"
	"github.com/dreamware/iphunt/internal/progress"
	"github.com/dreamware/iphunt/internal/search"
	"github.com/dreamware/iphunt/internal/status"
)

const digestOfOne = "9b702ec5f27c2bdedc32b68ec12154f78d1242242d384570c515ac6527b36085"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// TestMissingArgument verifies a run without a digest fails before searching.
func TestMissingArgument(t *testing.T) {
	stdout, _, err := execute(t)

	assert.ErrorIs(t, err, search.ErrMissingArgument)
	assert.Empty(t, stdout)
}

// TestInvalidDigest verifies malformed hex is an InputError and nothing runs.
func TestInvalidDigest(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{name: "odd length", arg: "abc"},
		{name: "non-hex", arg: "xyz0"},
		{name: "wrong size", arg: "abcd"},
		{name: "empty", arg: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "--output", "text", tt.arg)

			var inputErr *search.InputError
			require.True(t, errors.As(err, &inputErr), "want *InputError, got %v", err)
			assert.Empty(t, stdout, "no progress output before validation passes")
		})
	}
}

// TestTooManyArguments verifies only one digest is accepted.
func TestTooManyArguments(t *testing.T) {
	_, _, err := execute(t, digestOfOne, digestOfOne)
	assert.Error(t, err)
}

// TestInvalidConfig verifies configuration errors abort the run.
func TestInvalidConfig(t *testing.T) {
	_, _, err := execute(t, "--output", "fancy", digestOfOne)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestSearchFound runs a restricted search containing the preimage.
func TestSearchFound(t *testing.T) {
	stdout, _, err := execute(t, "--range", "0.0.0.0/20", "--workers", "4", "--output", "none", digestOfOne)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Found! IP: 0.0.0.1")
}

// TestSearchExhausted runs a restricted search that excludes the preimage.
func TestSearchExhausted(t *testing.T) {
	stdout, _, err := execute(t, "--range", "10.0.0.0/20", "--workers", "2", "--output", "none", digestOfOne)
	require.NoError(t, err, "exhaustion is a normal outcome")

	assert.Contains(t, stdout, "Not found: exhausted 4096 candidates")
}

// TestSearchSingleAddressRange verifies the pool shrinks to fit a tiny range.
func TestSearchSingleAddressRange(t *testing.T) {
	stdout, _, err := execute(t, "--range", "0.0.0.1/32", "--workers", "8", "--output", "none", digestOfOne)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Found! IP: 0.0.0.1")
}

// TestRunTextProgress verifies text progress lines reach stdout.
func TestRunTextProgress(t *testing.T) {
	cfg := config.Config{
		Workers:   2,
		Interval:  time.Millisecond,
		Range:     "0.0.0.0/12",
		Output:    config.OutputText,
		LogLevel:  "error",
		LogFormat: "text",
	}
	digest, err := search.ParseDigest(strings.Repeat("00", 32))
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	outcome, err := run(context.Background(), cfg, digest, &stdout, &stderr)
	require.NoError(t, err)

	assert.False(t, outcome.Found)
	assert.Equal(t, uint64(1<<20), outcome.Processed)
	assert.Contains(t, stdout.String(), "Progress: ")
	assert.Contains(t, stdout.String(), "Not found")
}

// TestRunCanceled verifies an interrupted search returns an error.
func TestRunCanceled(t *testing.T) {
	cfg := config.Config{
		Workers:   2,
		Interval:  progress.DefaultInterval,
		Output:    config.OutputNone,
		LogLevel:  "error",
		LogFormat: "text",
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer
	_, err := run(ctx, cfg, search.Digest{}, &stdout, &stderr)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, stdout.String(), "Found!")
}

// TestConfigCommand verifies flags flow into the printed configuration.
func TestConfigCommand(t *testing.T) {
	stdout, _, err := execute(t, "config", "--workers", "3", "--range", "10.0.0.0/8")
	require.NoError(t, err)

	assert.Contains(t, stdout, "workers: 3")
	assert.Contains(t, stdout, "range: 10.0.0.0/8")
	assert.Contains(t, stdout, "interval: 100ms")
}

// TestStatusCommand verifies the status subcommand prints a remote report.
func TestStatusCommand(t *testing.T) {
	srv := status.NewServer("", nil)
	srv.Emit(progress.Measure(1000, 4000, 2*time.Second))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	stdout, _, err := execute(t, "status", "--addr", ts.URL)
	require.NoError(t, err)

	assert.Contains(t, stdout, "State: running")
	assert.Contains(t, stdout, "Progress: 25.00% (1000/4000)")
	assert.Contains(t, stdout, "Speed: 500.00 ips/s")
	assert.Contains(t, stdout, "Remaining: 6.00s")
}

// TestStatusCommandUnreachable verifies fetch errors are returned.
func TestStatusCommandUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	_, _, err := execute(t, "status", "--addr", ts.URL)
	assert.Error(t, err)
}
