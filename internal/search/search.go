package search

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/iphunt/internal/keyspace"
	"github.com/dreamware/iphunt/internal/progress"
)

// Outcome is the terminal result of a search: either a match was found or
// every candidate in the space was examined without one.
type Outcome struct {
	Address   string        // Dotted-decimal match, empty when not found
	Elapsed   time.Duration // Wall-clock duration of the search
	Processed uint64        // Candidates examined without a match
	Workers   int           // Number of workers that took part
	Addr      uint32        // Integer form of Address
	Found     bool          // True for Found, false for Exhausted
}

// String describes the outcome in one line.
func (o Outcome) String() string {
	if o.Found {
		return fmt.Sprintf("found %s after %d candidates in %v", o.Address, o.Processed, o.Elapsed)
	}
	return fmt.Sprintf("exhausted %d candidates in %v", o.Processed, o.Elapsed)
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithWorkers sets the number of parallel workers. Values below 1 keep the
// default of one worker per logical CPU.
func WithWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSpace restricts the search to a sub-range of the IPv4 space.
func WithSpace(r keyspace.Range) Option {
	return func(s *Searcher) {
		s.space = r
	}
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress passes options through to the progress reporter that runs
// alongside the workers.
func WithProgress(opts ...progress.Option) Option {
	return func(s *Searcher) {
		s.progressOpts = append(s.progressOpts, opts...)
	}
}

// Searcher runs one exhaustive preimage search for a target digest.
type Searcher struct {
	log          logrus.FieldLogger
	state        *State
	progressOpts []progress.Option
	target       Digest
	space        keyspace.Range
	workers      int
}

// New creates a searcher for target over the full IPv4 space with one
// worker per logical CPU.
//
// Example:
//
//	digest, err := search.ParseDigest(arg)
//	if err != nil {
//	    return err
//	}
//	outcome, err := search.New(digest).Run(ctx)
func New(target Digest, opts ...Option) *Searcher {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Searcher{
		target:  target,
		space:   keyspace.Full,
		workers: runtime.NumCPU(),
		log:     discard,
		state:   NewState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State exposes the shared coordination state, mainly for observers such
// as the status server.
func (s *Searcher) State() *State {
	return s.state
}

// Run partitions the space, scans it with the worker pool and returns the
// outcome. It blocks until every worker and the progress reporter have
// returned.
//
// Canceling ctx sets the termination flag; if no match had been claimed by
// then, Run returns ctx.Err(). A Searcher is single use.
//
// Implementation:
//  1. Split the space into one range per worker and verify the tiling
//  2. Start the progress reporter and the cancellation bridge
//  3. Run one worker per range in an errgroup and wait for all of them
//  4. Set the termination flag if nobody did, then join the reporter
func (s *Searcher) Run(ctx context.Context) (Outcome, error) {
	ranges, err := keyspace.Split(s.space, s.workers)
	if err != nil {
		return Outcome{}, fmt.Errorf("partition keyspace: %w", err)
	}
	if err := keyspace.Verify(s.space, ranges); err != nil {
		return Outcome{}, fmt.Errorf("partition keyspace: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"workers": len(ranges),
		"space":   s.space.String(),
		"target":  s.target.String(),
	}).Info("search started")
	for i, r := range ranges {
		s.log.WithFields(logrus.Fields{"worker": i, "range": r.String()}).Debug("range assigned")
	}

	start := time.Now()
	state := s.state

	reporterOpts := append([]progress.Option{progress.WithLogger(s.log)}, s.progressOpts...)
	reporter := progress.New(s.space.Len(), reporterOpts...)
	reporter.Start(ctx, state)
	defer reporter.Stop()

	bridgeDone := make(chan struct{})
	defer close(bridgeDone)
	go func() {
		select {
		case <-ctx.Done():
			state.Stop()
		case <-bridgeDone:
		}
	}()

	var g errgroup.Group
	for i, r := range ranges {
		w := &worker{id: i, span: r, target: &s.target, state: state}
		g.Go(func() error {
			if addr, ok := w.scan(); ok {
				s.log.WithFields(logrus.Fields{"worker": w.id, "address": keyspace.Format(addr)}).Debug("worker found match")
			}
			return nil
		})
	}
	_ = g.Wait()

	// Workers never set the flag on the exhaustion path; the reporter needs it.
	state.Stop()

	outcome := Outcome{
		Elapsed:   time.Since(start),
		Processed: state.Processed(),
		Workers:   len(ranges),
	}

	if addr, ok := state.Match(); ok {
		outcome.Found = true
		outcome.Addr = addr
		outcome.Address = keyspace.Format(addr)
		s.log.WithFields(logrus.Fields{
			"address":   outcome.Address,
			"processed": outcome.Processed,
			"elapsed":   outcome.Elapsed,
		}).Info("match found")
		return outcome, nil
	}

	if err := ctx.Err(); err != nil && outcome.Processed < s.space.Len() {
		s.log.WithField("processed", outcome.Processed).Warn("search canceled")
		return outcome, err
	}

	s.log.WithFields(logrus.Fields{
		"processed": outcome.Processed,
		"elapsed":   outcome.Elapsed,
	}).Info("keyspace exhausted")
	return outcome, nil
}
