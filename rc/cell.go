// Package rc implements the reference-counted, leak-aware ownership
// primitives used to hand connection pointers to the multiplexer.
//
// The multiplexer (epoll/kqueue) only understands integer cookies, not
// Go pointers, so a Cell is "leaked" into its worker's Registry under
// a ticket id before its address is surrendered; the worker looks the
// ticket back up on every dispatch and un-leaks it (removing it from
// the Registry) exactly once, when the connection is torn down.
package rc

import "sync/atomic"

// Cell owns a single value with leak/un-leak semantics. It is not a
// general-purpose refcounted box: the core only ever leaks Connections,
// so Cell is a thin wrapper that runs no destructor of its own.
type Cell[T any] struct {
	refs   int32
	leaked atomic.Bool
	value  T
}

// NewCell wraps value with a single owning reference.
func NewCell[T any](value T) *Cell[T] {
	c := &Cell[T]{value: value}
	c.refs = 1
	return c
}

// Value returns the owned value.
func (c *Cell[T]) Value() T { return c.value }

// Leaked reports whether the cell is currently surrendered to an
// external subsystem (i.e. registered in a Registry).
func (c *Cell[T]) Leaked() bool { return c.leaked.Load() }

// Retain increments the reference count. Used when a second subsystem
// (e.g. a control message) needs to observe the cell without taking
// ownership.
func (c *Cell[T]) Retain() { atomic.AddInt32(&c.refs, 1) }

// Release decrements the reference count. It is a no-op while the cell
// is leaked: destruction is deferred until Registry.TakeRaw un-leaks it.
func (c *Cell[T]) Release() {
	if c.leaked.Load() {
		return
	}
	atomic.AddInt32(&c.refs, -1)
}
