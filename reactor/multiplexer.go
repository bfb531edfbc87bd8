// Package reactor implements the per-worker edge-triggered event loop:
// multiplexer registration, the wake-pipe control plane, the accept
// loop, and the stale-connection sweeper.
//
// Grounded in a sync.Map-based epoll callback dispatcher and its raw
// EpollCreate1/EpollCtl/EpollWait calls, but the multiplexer backend is
// rewritten to carry an opaque 64-bit cookie instead of a callback
// closure, since the worker loop decides dispatch itself (accept vs
// read vs write) rather than invoking a per-fd callback directly.
package reactor

// Interest is a bitmask of registration flags: 0x1 read, 0x2 write.
type Interest uint32

const (
	InterestRead  Interest = 0x1
	InterestWrite Interest = 0x2
)

// PollEvent is one readiness notification.
type PollEvent struct {
	Cookie   uint64
	Readable bool
	Writable bool
	Error    bool
}

// Multiplexer abstracts the platform I/O readiness backend
// (epoll on Linux, kqueue on Darwin). It is always edge-triggered.
type Multiplexer interface {
	// Register associates fd with the given interest set and cookie.
	Register(fd int, interest Interest, cookie uint64) error
	// Rearm changes fd's registered interest set in place (used to add
	// or drop write interest on an already-registered fd).
	Rearm(fd int, interest Interest, cookie uint64) error
	// Unregister removes fd entirely.
	Unregister(fd int) error
	// Wait blocks up to timeoutMs (a negative value blocks forever,
	// though the core never passes one) and fills events, returning
	// the count delivered.
	Wait(events []PollEvent, timeoutMs int) (int, error)
	// Close releases the multiplexer's own descriptor.
	Close() error
}
