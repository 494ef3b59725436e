package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/iphunt/internal/progress"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewServer("127.0.0.1:0", logger)
}

// TestHealth verifies the liveness endpoint.
func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestProgressBeforeFirstSnapshot verifies the initial report.
func TestProgressBeforeFirstSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StateStarting, report.State)
	assert.Equal(t, uint64(0), report.Processed)
}

// TestProgressReportsSnapshot verifies emitted snapshots are served.
func TestProgressReportsSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.Emit(progress.Measure(1000, 4000, 2*time.Second))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StateRunning, report.State)
	assert.Equal(t, uint64(1000), report.Processed)
	assert.Equal(t, uint64(4000), report.Total)
	assert.InDelta(t, 25.0, report.Percent, 1e-9)
	assert.InDelta(t, 2.0, report.ElapsedSeconds, 1e-9)
	require.NotNil(t, report.Throughput)
	assert.InDelta(t, 500.0, *report.Throughput, 1e-9)
	require.NotNil(t, report.ETASeconds)
	assert.InDelta(t, 6.0, *report.ETASeconds, 1e-9)
}

// TestProgressNonFiniteAsNull verifies infinite estimates still encode.
func TestProgressNonFiniteAsNull(t *testing.T) {
	s := newTestServer(t)
	s.Emit(progress.Measure(0, 4000, 0))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Nil(t, raw["throughput"])
	assert.Nil(t, raw["eta_seconds"])
}

// TestProgressMethodNotAllowed verifies only GET is served.
func TestProgressMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestFinish verifies the terminal state is reported.
func TestFinish(t *testing.T) {
	s := newTestServer(t)
	s.Emit(progress.Measure(10, 100, time.Second))
	s.Finish(StateFound, "0.0.0.1")

	report := s.Report()
	assert.Equal(t, StateFound, report.State)
	assert.Equal(t, "0.0.0.1", report.Result)
}

// TestFetch runs the server on a real listener and reads it with the client.
func TestFetch(t *testing.T) {
	s := newTestServer(t)
	s.Emit(progress.Measure(1000, 4000, 2*time.Second))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- s.Serve(l) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Shutdown(ctx))
		require.NoError(t, <-served)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, base := range []string{l.Addr().String(), "http://" + l.Addr().String() + "/"} {
		report, err := Fetch(ctx, base)
		require.NoError(t, err, base)
		assert.Equal(t, uint64(1000), report.Processed)
		assert.Equal(t, StateRunning, report.State)
	}
}

// TestFetchErrorStatus verifies non-2xx responses are errors.
func TestFetchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := Fetch(context.Background(), ts.URL)
	assert.Error(t, err)
}
