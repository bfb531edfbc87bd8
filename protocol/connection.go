// File: protocol/connection.go
// Package protocol implements the core per-socket Connection state
// machine.
//
// Adapted from a WSConnection design built around an inbox/outbox
// channel pair driving independent recv/send goroutines per
// connection: this core instead pins a Connection to exactly one
// reactor worker goroutine, so there are no per-connection goroutines
// or channels for data flow, only the control channel used to ask the
// owning worker to change interest sets.
package protocol

import (
	"sync"
	"sync/atomic"
)

// Connection is the primary long-lived entity in the reactor.
type Connection struct {
	Fd     int // platform file descriptor; an opaque socket token to callers
	CType  ConnType
	cstate atomic.Int32 // ConnState, accessed under Lock for the Closed transition

	RBuf Buffer
	WBuf Buffer

	lastActivity atomic.Int64 // microseconds, as supplied to Touch

	Lock sync.RWMutex // guards WBuf mutation and the Closed transition

	// ClientHandshakeKey holds the Sec-WebSocket-Key a client connection
	// sent, retained only for diagnostics; the core does not validate
	// the server's Sec-WebSocket-Accept response.
	ClientHandshakeKey string

	// Next/Prev thread this Connection through its owning worker's
	// intrusive connection list.
	Next, Prev *Connection

	// RegID is the ticket under which this connection is registered in
	// the worker's rc.Registry; 0 means not yet registered.
	RegID uint64

	// WriteInterest reports whether the multiplexer currently watches
	// this socket for writability.
	WriteInterest bool

	// Hooks gives the send discipline (io.go) access to the raw socket
	// without this package importing platform syscalls.
	Hooks IOHooks
}

// NewConnection constructs a Connection in NeedHandshake state.
func NewConnection(fd int, ctype ConnType) *Connection {
	c := &Connection{Fd: fd, CType: ctype}
	c.cstate.Store(int32(StateNeedHandshake))
	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnState {
	return ConnState(c.cstate.Load())
}

// SetState transitions the connection's state. Transitions to Closed
// must be made while holding Lock for writing.
func (c *Connection) SetState(s ConnState) {
	c.cstate.Store(int32(s))
}

// Touch records the current time (microseconds since an arbitrary
// epoch, supplied by the caller) as the connection's last activity,
// feeding the stale sweeper. The reactor calls it after each successful
// read only; writes do not update it.
func (c *Connection) Touch(nowMicros int64) {
	c.lastActivity.Store(nowMicros)
}

// LastActivity returns the last-touched timestamp in microseconds.
func (c *Connection) LastActivity() int64 {
	return c.lastActivity.Load()
}
