// Package search finds the IPv4 address whose dotted-decimal text hashes
// to a target SHA-256 digest by scanning the address space in parallel.
//
// # Overview
//
// A Searcher splits the space into one contiguous range per worker (see
// package keyspace) and runs every worker in its own goroutine. Each
// worker walks its range in ascending order:
//
//	for each address in range:
//	    if termination flag set: return
//	    text := "a.b.c.d"
//	    if sha256(text) == target: claim match, set flag, return
//	    processed++
//
// # Coordination
//
// Workers share a State holding three independent atomics: the
// termination flag, the processed counter and the match slot. The first
// worker to match claims the slot and sets the flag; every other worker
// sees the flag on its next iteration and returns. Cancelling the context
// passed to Run also sets the flag.
//
// A progress.Reporter samples the counter alongside the workers. When the
// workers finish without a match, Run sets the flag itself so the reporter
// stops, and joins the reporter before returning.
//
// # Errors
//
// Input problems are detected before any worker starts: ParseDigest
// returns *InputError for malformed hex, and callers report
// ErrMissingArgument when no digest was given. Once scanning begins
// nothing can fail; not finding a match is the Exhausted outcome, not an
// error.
package search
