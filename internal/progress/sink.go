package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
)

// Sink receives every snapshot the reporter emits.
type Sink interface {
	Emit(Snapshot)
}

// Finisher is implemented by sinks that need to flush or tear down once
// the reporter stops.
type Finisher interface {
	Finish()
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Snapshot)

// Emit calls f(s).
func (f SinkFunc) Emit(s Snapshot) { f(s) }

// WriterSink prints one human-readable line per snapshot.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing progress lines to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes a line like
// "Progress: 12.50%, Speed: 4000000.00 ips/s, Remaining: 940.00s".
func (ws *WriterSink) Emit(s Snapshot) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	fmt.Fprintf(ws.w, "Progress: %.2f%%, Speed: %.2f ips/s, Remaining: %.2fs\n",
		s.Percent, s.Throughput, s.ETA)
}

// LogSink logs each snapshot at info level with structured fields.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink returns a sink that logs through l.
func NewLogSink(l logrus.FieldLogger) *LogSink {
	return &LogSink{log: l}
}

// Emit logs the snapshot.
func (ls *LogSink) Emit(s Snapshot) {
	ls.log.WithFields(logrus.Fields{
		"processed":   s.Processed,
		"percent":     fmt.Sprintf("%.2f", s.Percent),
		"ips_per_sec": fmt.Sprintf("%.2f", s.Throughput),
		"eta_seconds": fmt.Sprintf("%.2f", s.ETA),
	}).Info("progress")
}

// BarSink drives a terminal progress bar.
type BarSink struct {
	bar  *pb.ProgressBar
	once sync.Once
}

// NewBarSink starts a bar sized to total that renders to w.
func NewBarSink(w io.Writer, total uint64) *BarSink {
	bar := pb.New64(int64(total))
	bar.SetTemplate(pb.Full)
	bar.SetWriter(w)
	bar.Start()
	return &BarSink{bar: bar}
}

// Emit moves the bar to the snapshot's processed count.
func (bs *BarSink) Emit(s Snapshot) {
	bs.bar.SetCurrent(int64(s.Processed))
}

// Finish stops rendering. It is safe to call more than once.
func (bs *BarSink) Finish() {
	bs.once.Do(func() {
		bs.bar.Finish()
	})
}

// Current returns the bar position.
func (bs *BarSink) Current() int64 {
	return bs.bar.Current()
}
