package search

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"

	"github.com/dreamware/iphunt/internal/keyspace"
)

// ErrMissingArgument is returned when no target digest was supplied at all.
var ErrMissingArgument = errors.New("missing target digest: provide a SHA-256 hex string as the first argument")

// Digest is a SHA-256 value. The target digest is decoded once and then
// shared read-only by every worker.
type Digest [sha256.Size]byte

// InputError reports a target digest that could not be decoded.
type InputError struct {
	Input string // Raw input as supplied by the caller
	Err   error  // Underlying decode or length error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid digest %q: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ParseDigest decodes a hex-encoded SHA-256 digest.
// Empty input, an odd number of characters, non-hex characters and any
// length other than 32 bytes are reported as *InputError.
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return Digest{}, &InputError{Input: s, Err: errors.New("empty input")}
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, &InputError{Input: s, Err: err}
	}
	if len(raw) != sha256.Size {
		return Digest{}, &InputError{
			Input: s,
			Err:   fmt.Errorf("decoded %d bytes, want %d", len(raw), sha256.Size),
		}
	}

	var d Digest
	copy(d[:], raw)
	return d, nil
}

// DigestOf hashes the dotted-decimal form of addr.
func DigestOf(addr uint32) Digest {
	return sha256.Sum256([]byte(keyspace.Format(addr)))
}

// String returns the lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
