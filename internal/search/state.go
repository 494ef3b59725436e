package search

import "sync/atomic"

// State is the coordination state shared by all workers of one search.
// Every field is an independent atomic; no invariant spans two of them, so
// no mutex is needed.
type State struct {
	stop      atomic.Bool   // Termination flag, set once and never reset
	_         [63]byte      // Keeps the flag off the counter's cache line
	processed atomic.Uint64 // Candidates examined without a match
	_         [56]byte
	found     atomic.Bool   // Whether a worker claimed a match
	match     atomic.Uint32 // Matching address, valid once found is set
}

// NewState returns a state with the flag cleared and the counter at zero.
func NewState() *State {
	return &State{}
}

// Stop sets the termination flag. Calling it more than once is harmless.
func (s *State) Stop() {
	s.stop.Store(true)
}

// Stopped reports whether the termination flag has been set.
func (s *State) Stopped() bool {
	return s.stop.Load()
}

// Add increments the processed counter by n.
func (s *State) Add(n uint64) {
	s.processed.Add(n)
}

// Processed returns the current processed count.
func (s *State) Processed() uint64 {
	return s.processed.Load()
}

// Claim records addr as the match if no other worker got there first, then
// sets the termination flag. It returns true for the winning claim only.
func (s *State) Claim(addr uint32) bool {
	won := s.found.CompareAndSwap(false, true)
	if won {
		s.match.Store(addr)
	}
	s.Stop()
	return won
}

// Match returns the claimed address, if any.
// It is only meaningful once every worker has returned.
func (s *State) Match() (uint32, bool) {
	if !s.found.Load() {
		return 0, false
	}
	return s.match.Load(), true
}
