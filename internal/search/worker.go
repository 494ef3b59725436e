package search

import (
	"bytes"

	"github.com/minio/sha256-simd"

	"github.com/dreamware/iphunt/internal/keyspace"
)

// worker scans one sub-range of the keyspace.
type worker struct {
	id     int
	span   keyspace.Range
	target *Digest
	state  *State
}

// scan enumerates the worker's range in ascending order, hashing the
// dotted-decimal form of each address and comparing it with the target.
//
// The termination flag is checked before every candidate, so once any
// worker claims a match every other worker stops after at most the
// candidate it is currently hashing. Non-matching candidates increment the
// shared counter by one.
//
// Returns the matching address and true if this worker found it.
func (w *worker) scan() (uint32, bool) {
	h := sha256.New()
	text := make([]byte, 0, len("255.255.255.255"))
	sum := make([]byte, 0, sha256.Size)

	// uint64 so the loop terminates when End is 255.255.255.255
	for a := uint64(w.span.Start); a <= uint64(w.span.End); a++ {
		if w.state.Stopped() {
			return 0, false
		}

		addr := uint32(a)
		text = keyspace.AppendFormat(text[:0], addr)

		h.Reset()
		h.Write(text)
		sum = h.Sum(sum[:0])

		if bytes.Equal(sum, w.target[:]) {
			w.state.Claim(addr)
			return addr, true
		}

		w.state.Add(1)
	}

	return 0, false
}
