// Package progress estimates how far a running search has come.
//
// A Reporter samples a shared processed counter on a fixed interval
// (100ms by default) and derives three figures from each reading:
//
//	throughput = processed / elapsed_seconds
//	percent    = processed / total * 100
//	eta        = (total - processed) / throughput
//
// Early samples divide by a tiny elapsed time, and a stalled counter gives
// an infinite ETA. These values are informational and are passed to sinks
// unchanged. WithWindow switches throughput to a moving average over the
// last n samples, which steadies the ETA.
//
// The reporter stops on the first tick that observes the termination flag,
// on context cancellation, or on Stop. Snapshots go to any number of
// sinks: plain text lines, structured log entries, a terminal bar, or the
// status server.
package progress
