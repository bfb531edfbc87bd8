// Package queue implements the unbounded MPSC channel used for worker
// control messages and task-runtime dispatch.
//
// Grounded in a concurrency executor that backs its task queue with
// github.com/eapache/queue.Queue (a growable ring buffer) but dequeues
// it from a busy-spin loop with no synchronization between producers
// and the consumer. Channel keeps the same ring buffer but adds the
// mutex/condvar discipline that design lacked, plus a non-blocking
// Pending probe and close-and-drain semantics a bare ring buffer
// doesn't provide.
package queue

import (
	"sync"

	eapacheq "github.com/eapache/queue"
)

// Channel is an unbounded multi-producer, single-consumer FIFO backed
// by an eapache/queue ring buffer.
type Channel[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   *eapacheq.Queue
	closed bool
}

// New constructs an empty, open Channel.
func New[T any]() *Channel[T] {
	c := &Channel[T]{ring: eapacheq.New()}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Send appends val to the tail. It never blocks; it returns false if the
// channel has been closed.
func (c *Channel[T]) Send(val T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.ring.Add(val)
	c.mu.Unlock()
	c.cond.Signal()
	return true
}

// Recv blocks until an item is available or the channel is closed.
// ok is false only when the channel is closed and drained.
func (c *Channel[T]) Recv() (val T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.ring.Length() == 0 && !c.closed {
		c.cond.Wait()
	}
	if c.ring.Length() == 0 {
		return val, false
	}
	val = c.ring.Remove().(T)
	return val, true
}

// TryRecv performs a non-blocking receive.
func (c *Channel[T]) TryRecv() (val T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ring.Length() == 0 {
		return val, false
	}
	val = c.ring.Remove().(T)
	return val, true
}

// Pending reports the approximate number of buffered items; non-blocking.
func (c *Channel[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Length()
}

// Close marks the channel closed and wakes every blocked receiver.
// Any items still queued are dropped; the caller is responsible for
// releasing resources they reference (a Connection still queued at
// halt, for instance, must be drained via Drain first).
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for c.ring.Length() > 0 {
		c.ring.Remove()
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Drain removes and returns every currently queued item without
// closing the channel, invoking fn on each. Used by the halt path to
// release resources referenced by queued items before Close discards
// them silently.
func (c *Channel[T]) Drain(fn func(T)) {
	for {
		v, ok := c.TryRecv()
		if !ok {
			return
		}
		fn(v)
	}
}
