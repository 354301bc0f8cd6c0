// Package progress implements the progress-reporting collaborator (spec §5,
// §6): a Snapshot of welder progress, and a Reporter that invokes a
// caller-supplied Callback at bounded wall-clock intervals plus start and
// end, honoring the callback's return value as a cooperative-cancellation
// request.
//
// Grounded on the teacher's streaming/grbl.go and streaming/generator.go,
// which push line/byte counts down a channel consumed by a cheggaaa/pb bar
// in main.go. Adapted from a one-way channel to a direct callback because
// spec §5 needs the callback's return value to drive cancellation, which a
// channel send cannot carry back to the producer.
package progress

import (
	"time"

	"arcweld/internal/weldlog"
)

// Snapshot mirrors spec §6's progress-callback payload exactly.
type Snapshot struct {
	BytesRead  int64
	TotalBytes int64

	LinesProcessed  int
	GCodesProcessed int

	Elapsed   time.Duration
	Remaining time.Duration

	CompressionRatio   float64 // original bytes / compressed bytes
	CompressionPercent float64

	ArcsCreated            int
	PointsCompressed       int
	FirmwareCompensations int

	OriginalHistogram   []int
	CompressedHistogram []int
}

// Callback is invoked with the current snapshot and logger; a falsey return
// requests cooperative cancellation (spec §5).
type Callback func(Snapshot, *weldlog.Logger) bool

// ComputeCompression derives CompressionRatio/CompressionPercent from bytes
// consumed vs. bytes emitted so far, matching
// original_source/ArcWelder/arc_welder.cpp's own
// source_file_position/target_file_size formula. Returns zero for both
// before any bytes have been written.
func ComputeCompression(bytesRead, bytesWritten int64) (ratio, percent float64) {
	if bytesWritten == 0 {
		return 0, 0
	}
	ratio = float64(bytesRead) / float64(bytesWritten)
	percent = (1 - float64(bytesWritten)/float64(bytesRead)) * 100
	return ratio, percent
}

// DefaultInterval is the minimum wall-clock gap between non-boundary
// callback invocations (spec §5: "bounded wall-clock intervals (≥1 s by
// default)").
const DefaultInterval = time.Second

// Reporter paces calls to a Callback.
type Reporter struct {
	interval time.Duration
	callback Callback
	logger   *weldlog.Logger

	start      time.Time
	lastReport time.Time
	reported   bool
}

// NewReporter constructs a Reporter. A nil callback makes every method a
// no-op that always returns true (continue), so callers need not special-case
// "no progress reporting configured".
func NewReporter(interval time.Duration, cb Callback, logger *weldlog.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{interval: interval, callback: cb, logger: logger}
}

func (r *Reporter) now() time.Time { return time.Now() }

// Start reports the initial snapshot unconditionally and starts the elapsed
// clock.
func (r *Reporter) Start(snap Snapshot) bool {
	r.start = r.now()
	r.lastReport = r.start
	return r.invoke(snap)
}

// Tick reports snap only if at least the configured interval has elapsed
// since the last report; otherwise it is a no-op that returns true.
func (r *Reporter) Tick(snap Snapshot) bool {
	now := r.now()
	if now.Sub(r.lastReport) < r.interval {
		return true
	}
	r.lastReport = now
	return r.invoke(snap)
}

// End reports the final snapshot unconditionally.
func (r *Reporter) End(snap Snapshot) bool {
	return r.invoke(snap)
}

func (r *Reporter) invoke(snap Snapshot) bool {
	if r.callback == nil {
		return true
	}
	r.reported = true
	return r.callback(snap, r.logger)
}
