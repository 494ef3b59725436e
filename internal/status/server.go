// Package status serves the progress of a running search over HTTP and
// fetches it from another process.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/iphunt/internal/progress"
)

// Report is the JSON body of GET /progress.
// Throughput and ETASeconds are null while they are not finite numbers.
type Report struct {
	Throughput     *float64 `json:"throughput"`
	ETASeconds     *float64 `json:"eta_seconds"`
	State          string   `json:"state"`
	Result         string   `json:"result,omitempty"`
	Processed      uint64   `json:"processed"`
	Total          uint64   `json:"total"`
	Percent        float64  `json:"percent"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// Search states reported by the server.
const (
	StateStarting  = "starting"
	StateRunning   = "running"
	StateFound     = "found"
	StateExhausted = "exhausted"
	StateCanceled  = "canceled"
)

// Server exposes /health and /progress. It implements progress.Sink, so
// it can be handed to the reporter directly.
// Thread-safe: all methods are safe for concurrent access.
type Server struct {
	log     logrus.FieldLogger
	httpSrv *http.Server
	last    progress.Snapshot // Latest snapshot, guarded by mu
	state   string
	result  string
	mu      sync.RWMutex
}

// NewServer creates a server that will listen on addr.
// A nil logger discards log output.
func NewServer(addr string, log logrus.FieldLogger) *Server {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	s := &Server{
		log:   log,
		state: StateStarting,
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes, for mounting or testing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/progress", s.handleProgress)
	return mux
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.log.WithField("addr", l.Addr().String()).Info("status server listening")
	if err := s.httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Emit records a snapshot from the progress reporter.
func (s *Server) Emit(snap progress.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snap
	if s.state == StateStarting {
		s.state = StateRunning
	}
}

// Finish records the terminal state and, for a match, the address.
func (s *Server) Finish(state, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.result = result
}

// Report returns the current report.
func (s *Server) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Report{
		State:          s.state,
		Result:         s.result,
		Processed:      s.last.Processed,
		Total:          s.last.Total,
		Percent:        s.last.Percent,
		ElapsedSeconds: s.last.Elapsed.Seconds(),
		Throughput:     finite(s.last.Throughput),
		ETASeconds:     finite(s.last.ETA),
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Report())
}

// finite returns nil for values encoding/json cannot represent.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
