package progress

import (
	"math"
	"time"
)

// Snapshot is one progress measurement of a running search.
type Snapshot struct {
	Time       time.Time     // Wall-clock time the measurement was taken
	Elapsed    time.Duration // Time since the reporter started
	Processed  uint64        // Candidates examined so far
	Total      uint64        // Size of the searched space
	Throughput float64       // Candidates per second
	Percent    float64       // Processed as a share of Total, 0-100
	ETA        float64       // Estimated seconds remaining, may be +Inf or NaN
}

// Measure computes a snapshot from a processed count and the elapsed time.
// Throughput is processed/elapsed, so a zero elapsed time or a zero count
// yields non-finite values; they are returned as-is.
func Measure(processed, total uint64, elapsed time.Duration) Snapshot {
	throughput := float64(processed) / elapsed.Seconds()
	return snapshot(processed, total, elapsed, throughput)
}

func snapshot(processed, total uint64, elapsed time.Duration, throughput float64) Snapshot {
	var remaining uint64
	if processed < total {
		remaining = total - processed
	}

	var percent float64
	if total > 0 {
		percent = float64(processed) / float64(total) * 100
	}

	return Snapshot{
		Elapsed:    elapsed,
		Processed:  processed,
		Total:      total,
		Throughput: throughput,
		Percent:    percent,
		ETA:        float64(remaining) / throughput,
	}
}

// Remaining converts ETA to a duration. It reports false when the estimate
// is not finite.
func (s Snapshot) Remaining() (time.Duration, bool) {
	if math.IsInf(s.ETA, 0) || math.IsNaN(s.ETA) || s.ETA > math.MaxInt64/float64(time.Second) {
		return 0, false
	}
	return time.Duration(s.ETA * float64(time.Second)), true
}
