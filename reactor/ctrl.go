package reactor

import "github.com/momentics/hioload-ws/protocol"

// ctrlMsg is one of the two control-channel messages a worker accepts.
type ctrlMsg struct {
	kind ctrlKind
	conn *protocol.Connection
	done chan struct{} // signaled once for ctrlRead
}

type ctrlKind int

const (
	// ctrlRead attaches a freshly constructed Connection: register read
	// interest, link into the worker's list, signal done once.
	ctrlRead ctrlKind = iota
	// ctrlWrite re-arms read+write interest on a connection whose wbuf
	// became non-empty since last registration.
	ctrlWrite
)
