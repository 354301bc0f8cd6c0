package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arcweld/internal/weldlog"
)

func TestNilCallbackIsNoOpAndContinues(t *testing.T) {
	r := NewReporter(time.Millisecond, nil, nil)
	assert.True(t, r.Start(Snapshot{}), "expected nil callback to report continue on Start")
	assert.True(t, r.Tick(Snapshot{}), "expected nil callback to report continue on Tick")
	assert.True(t, r.End(Snapshot{}), "expected nil callback to report continue on End")
}

func TestStartAlwaysInvokesCallback(t *testing.T) {
	calls := 0
	r := NewReporter(time.Hour, func(Snapshot, *weldlog.Logger) bool {
		calls++
		return true
	}, nil)
	r.Start(Snapshot{LinesProcessed: 1})
	assert.Equal(t, 1, calls)
}

func TestTickRespectsInterval(t *testing.T) {
	calls := 0
	r := NewReporter(30*time.Millisecond, func(Snapshot, *weldlog.Logger) bool {
		calls++
		return true
	}, nil)
	r.Start(Snapshot{})
	calls = 0

	assert.True(t, r.Tick(Snapshot{}))
	assert.Equal(t, 0, calls, "expected Tick to be a no-op before the interval elapses")

	time.Sleep(40 * time.Millisecond)
	assert.True(t, r.Tick(Snapshot{}))
	assert.Equal(t, 1, calls, "expected Tick to invoke the callback once the interval elapses")
}

func TestCallbackFalseRequestsCancellation(t *testing.T) {
	r := NewReporter(time.Hour, func(Snapshot, *weldlog.Logger) bool {
		return false
	}, nil)
	assert.False(t, r.Start(Snapshot{}), "expected a falsey callback to propagate as cancellation")
	assert.False(t, r.End(Snapshot{}), "expected End to also propagate cancellation")
}

func TestEndAlwaysInvokesRegardlessOfInterval(t *testing.T) {
	calls := 0
	r := NewReporter(time.Hour, func(Snapshot, *weldlog.Logger) bool {
		calls++
		return true
	}, nil)
	r.Start(Snapshot{})
	r.End(Snapshot{})
	assert.Equal(t, 2, calls, "expected both Start and End to invoke unconditionally")
}

func TestNonPositiveIntervalFallsBackToDefault(t *testing.T) {
	r := NewReporter(0, nil, nil)
	assert.Equal(t, DefaultInterval, r.interval)
}

func TestComputeCompressionBeforeAnyBytesWritten(t *testing.T) {
	ratio, percent := ComputeCompression(0, 0)
	assert.Zero(t, ratio)
	assert.Zero(t, percent)
}

func TestComputeCompressionMatchesReadWriteRatio(t *testing.T) {
	ratio, percent := ComputeCompression(1000, 400)
	assert.InDelta(t, 2.5, ratio, 1e-9)
	assert.InDelta(t, 60.0, percent, 1e-9)
}
