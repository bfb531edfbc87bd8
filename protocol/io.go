package protocol

import "errors"

// ErrWouldBlock is the sentinel a Connection's RawSend hook must return
// in place of the platform's EAGAIN, so protocol stays free of
// platform-specific syscall imports (those live in package reactor).
var ErrWouldBlock = errors.New("would block")

// IOHooks are injected by the owning reactor worker when a Connection
// is registered, giving the connection-level send discipline access to
// the raw socket without protocol importing syscalls.
type IOHooks struct {
	// RawSend attempts a single non-blocking send of data, returning
	// the number of bytes actually written. A would-block result must
	// be reported as (0, ErrWouldBlock); any other non-nil error is
	// fatal to the connection.
	RawSend func(data []byte) (int, error)

	// Shutdown half-closes the socket (write side); the eventual EOF on
	// read drives full teardown.
	Shutdown func()

	// NotifyWritable asks the owning worker to re-arm write interest
	// because WBuf just became non-empty: a control message plus
	// wake-pipe poke.
	NotifyWritable func()
}

// Send implements the non-blocking write discipline for a single
// logical frame. debugPending forces every write through the buffered
// WBuf path even when the kernel socket could absorb it directly,
// exercising the same code path the control-message re-arm relies on.
func (c *Connection) Send(data []byte, debugPending bool) error {
	c.Lock.Lock()
	defer c.Lock.Unlock()

	if c.WBuf.Len() == 0 && !debugPending {
		n, err := c.Hooks.RawSend(data)
		if err == nil {
			if n == len(data) {
				return nil
			}
			// partial send: buffer the unsent suffix.
			return c.bufferAndNotifyLocked(data[n:])
		}
		if errors.Is(err, ErrWouldBlock) {
			return c.bufferAndNotifyLocked(data)
		}
		// Fatal send error: half-close; EOF on read drives teardown.
		c.Hooks.Shutdown()
		return err
	}

	return c.bufferAndNotifyLocked(data)
}

// bufferAndNotifyLocked appends data to WBuf and notifies the owning
// worker to re-arm write interest. Caller must hold c.Lock.
func (c *Connection) bufferAndNotifyLocked(data []byte) error {
	wasEmpty := c.WBuf.Len() == 0
	c.WBuf.Append(data)
	if wasEmpty {
		c.Hooks.NotifyWritable()
	}
	return nil
}

// DrainWrite is invoked by the owning worker on a writable event: it
// drains WBuf via successive RawSend calls, stopping on EAGAIN or once
// WBuf is empty. It reports whether WBuf is now empty (so the caller
// can unregister write interest) and any fatal error encountered.
func (c *Connection) DrainWrite() (empty bool, err error) {
	c.Lock.Lock()
	defer c.Lock.Unlock()

	for c.WBuf.Len() > 0 {
		buf := c.WBuf.Bytes()
		n, sendErr := c.Hooks.RawSend(buf)
		if n > 0 {
			c.WBuf.Consume(n)
		}
		if sendErr != nil {
			if errors.Is(sendErr, ErrWouldBlock) {
				return false, nil
			}
			c.Hooks.Shutdown()
			return false, sendErr
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}
