// Package buffer holds the welder's unwritten-command buffer (spec §4.4): a
// FIFO of source lines consumed but not yet either flushed to output verbatim
// or superseded by an arc commit.
package buffer

import (
	"fmt"

	"arcweld/position"
	"arcweld/weldererr"
)

// UnwrittenCommand is one consumed motion line still pending a disposition
// (spec §3).
type UnwrittenCommand struct {
	RawText         string
	Comment         string
	ExtrusionLength float64
	ModalSnapshot   position.State
}

// Buffer is a FIFO/deque of UnwrittenCommand, grounded on the teacher's small
// value-holding structs with a narrow mutator set (vm/coordinates.go's
// CoordinateSystem, gcode/modal.go's sliceOfWords) rather than on a container
// library: a handful of pending lines never needs container/ring's
// wraparound reuse, since head-flush always drains everything and
// tail-eviction count is always known exactly (num_segments - 1).
type Buffer struct {
	items []UnwrittenCommand
}

// Append adds cmd to the tail of the buffer.
func (b *Buffer) Append(cmd UnwrittenCommand) {
	b.items = append(b.items, cmd)
}

// PopHead removes and returns every buffered command in order, for a flush.
func (b *Buffer) PopHead() []UnwrittenCommand {
	out := b.items
	b.items = nil
	return out
}

// PopTail removes and returns the last n commands, in original order, for an
// arc-commit eviction. Panics if the buffer holds fewer than n entries: spec
// §4.4 calls this a programming defect, not a recoverable error.
func (b *Buffer) PopTail(n int) []UnwrittenCommand {
	if n < 0 || n > len(b.items) {
		panic(fmt.Errorf("%w: PopTail(%d) on buffer of length %d", weldererr.ErrBufferInvariant, n, len(b.items)))
	}
	split := len(b.items) - n
	evicted := append([]UnwrittenCommand(nil), b.items[split:]...)
	b.items = b.items[:split]
	return evicted
}

// At returns the command at index i (0 = head), for comment aggregation over
// a range without mutating the buffer.
func (b *Buffer) At(i int) UnwrittenCommand { return b.items[i] }

// Count returns the number of buffered commands.
func (b *Buffer) Count() int { return len(b.items) }

// Tail returns the last n commands without removing them, for building the
// arc-commit annotation comment before the eviction itself (spec §4.3 step 1
// happens before step 2's pop).
func (b *Buffer) Tail(n int) []UnwrittenCommand {
	if n < 0 || n > len(b.items) {
		panic(fmt.Errorf("%w: Tail(%d) on buffer of length %d", weldererr.ErrBufferInvariant, n, len(b.items)))
	}
	return b.items[len(b.items)-n:]
}
