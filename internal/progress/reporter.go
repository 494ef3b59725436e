package progress

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often the reporter samples the shared counter.
const DefaultInterval = 100 * time.Millisecond

// Counter is the read side of the shared search state.
type Counter interface {
	Processed() uint64 // Candidates examined so far
	Stopped() bool     // Whether the termination flag is set
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithInterval overrides the sampling interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithWindow makes throughput a moving average over the last n samples
// instead of the cumulative processed/elapsed rate. Values below 2 keep the
// cumulative rate.
func WithWindow(n int) Option {
	return func(r *Reporter) {
		r.window = n
	}
}

// WithSink adds a destination for snapshots. Sinks are called in order from
// the reporter goroutine.
func WithSink(s Sink) Option {
	return func(r *Reporter) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

type sample struct {
	at        time.Time
	processed uint64
}

// Reporter periodically samples a Counter and turns the readings into
// throughput, percent-complete and time-remaining estimates.
// Thread-safe: Last and Stop may be called from any goroutine.
type Reporter struct {
	log      logrus.FieldLogger
	now      func() time.Time
	ctx      context.Context    // Internal context, canceled by Stop
	cancel   context.CancelFunc // Cancels ctx
	last     Snapshot           // Most recent snapshot, guarded by mu
	start    time.Time          // Reference point for Elapsed
	sinks    []Sink
	samples  []sample // Ring of recent samples for windowed throughput
	total    uint64
	interval time.Duration
	window   int
	next     int // Next ring slot to overwrite
	ticks    int // Snapshots emitted so far, guarded by mu
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// New creates a reporter for a search over total candidates.
//
// Example:
//
//	r := progress.New(keyspace.Size, progress.WithSink(progress.NewLogSink(log)))
//	r.Start(ctx, state)
//	defer r.Stop()
func New(total uint64, opts ...Option) *Reporter {
	ctx, cancel := context.WithCancel(context.Background())

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Reporter{
		total:    total,
		interval: DefaultInterval,
		log:      discard,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	if r.window > 1 {
		r.samples = make([]sample, 0, r.window)
	}
	return r
}

// Start runs the reporter in a new goroutine. Stop joins it.
func (r *Reporter) Start(ctx context.Context, c Counter) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx, c)
	}()
}

// Run samples c every interval until it observes the termination flag,
// ctx is canceled or Stop is called. It blocks.
//
// Each tick emits a snapshot before checking the flag, so the final
// snapshot may be up to one interval stale.
func (r *Reporter) Run(ctx context.Context, c Counter) {
	if ctx == nil {
		ctx = r.ctx
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.finish()

	r.log.WithField("interval", r.interval).Debug("progress reporter started")

	for {
		select {
		case <-ticker.C:
			r.emit(r.Sample(c.Processed()))
			if c.Stopped() {
				r.log.Debug("progress reporter stopping: search terminated")
				return
			}
		case <-ctx.Done():
			r.log.Debug("progress reporter stopping due to context cancellation")
			return
		case <-r.ctx.Done():
			r.log.Debug("progress reporter stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the reporter and waits for a reporter launched with Start
// to return.
func (r *Reporter) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Sample records one reading of the processed counter and returns the
// resulting snapshot. Run calls it once per tick.
func (r *Reporter) Sample(processed uint64) Snapshot {
	at := r.now()
	elapsed := at.Sub(r.start)

	var snap Snapshot
	if rate, ok := r.windowRate(at, processed); ok {
		snap = snapshot(processed, r.total, elapsed, rate)
	} else {
		snap = Measure(processed, r.total, elapsed)
	}
	snap.Time = at
	return snap
}

// windowRate pushes the sample into the ring and returns the rate across
// the oldest and newest samples it holds.
func (r *Reporter) windowRate(at time.Time, processed uint64) (float64, bool) {
	if r.window < 2 {
		return 0, false
	}

	s := sample{at: at, processed: processed}
	if len(r.samples) < r.window {
		r.samples = append(r.samples, s)
	} else {
		r.samples[r.next] = s
	}
	r.next = (r.next + 1) % r.window

	if len(r.samples) < 2 {
		return 0, false
	}

	oldest := r.samples[0]
	if len(r.samples) == r.window {
		oldest = r.samples[r.next]
	}
	span := at.Sub(oldest.at).Seconds()
	if span <= 0 || processed < oldest.processed {
		return 0, false
	}
	return float64(processed-oldest.processed) / span, true
}

func (r *Reporter) emit(s Snapshot) {
	r.mu.Lock()
	r.last = s
	r.ticks++
	r.mu.Unlock()

	for _, sink := range r.sinks {
		sink.Emit(s)
	}
}

func (r *Reporter) finish() {
	for _, sink := range r.sinks {
		if f, ok := sink.(Finisher); ok {
			f.Finish()
		}
	}
}

// Last returns the most recently emitted snapshot and whether any snapshot
// has been emitted yet.
func (r *Reporter) Last() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.ticks > 0
}

// Total returns the size of the space the reporter measures against.
func (r *Reporter) Total() uint64 {
	return r.total
}
