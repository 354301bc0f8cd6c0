// Package weldererr defines arcweld's sentinel error kinds (spec §7),
// grounded on the teacher's errors.New(fmt.Sprintf(...)) idiom in
// vm/optimize.go and vm/export.go, upgraded to wrapped %w errors so callers
// can errors.Is/errors.As on cause while keeping the same terse,
// non-justifying message style.
package weldererr

import "errors"

// ErrIO marks a fatal I/O open/read/write failure (spec §7 kind 1).
var ErrIO = errors.New("weldererr: i/o failure")

// ErrBufferInvariant marks an attempt to pop more unwritten entries than the
// buffer holds (spec §7 kind 4): a programming defect, not a recoverable
// condition.
var ErrBufferInvariant = errors.New("weldererr: buffer invariant violated")
