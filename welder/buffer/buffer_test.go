package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendAndPopHead(t *testing.T) {
	var b Buffer
	b.Append(UnwrittenCommand{RawText: "G1 X1"})
	b.Append(UnwrittenCommand{RawText: "G1 X2"})
	out := b.PopHead()
	assert.Len(t, out, 2)
	assert.Equal(t, "G1 X1", out[0].RawText)
	assert.Equal(t, "G1 X2", out[1].RawText)
	assert.Zero(t, b.Count(), "expected buffer empty after PopHead")
}

func TestPopTailEvictsFromEnd(t *testing.T) {
	var b Buffer
	b.Append(UnwrittenCommand{RawText: "a"})
	b.Append(UnwrittenCommand{RawText: "b"})
	b.Append(UnwrittenCommand{RawText: "c"})
	evicted := b.PopTail(2)
	assert.Len(t, evicted, 2)
	assert.Equal(t, "b", evicted[0].RawText)
	assert.Equal(t, "c", evicted[1].RawText)
	assert.Equal(t, 1, b.Count())
	assert.Equal(t, "a", b.At(0).RawText)
}

func TestPopTailTooManyPanics(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover(), "expected panic on PopTail exceeding buffer length")
	}()
	var b Buffer
	b.Append(UnwrittenCommand{RawText: "a"})
	b.PopTail(2)
}

func TestTailDoesNotMutate(t *testing.T) {
	var b Buffer
	b.Append(UnwrittenCommand{RawText: "a"})
	b.Append(UnwrittenCommand{RawText: "b"})
	tail := b.Tail(1)
	assert.Len(t, tail, 1)
	assert.Equal(t, "b", tail[0].RawText)
	assert.Equal(t, 2, b.Count(), "expected Tail to leave buffer untouched")
}
