// Worker implements the per-thread reactor loop: one multiplexer, one
// wake-pipe, one control channel, one intrusive connection list, and a
// throttled stale-connection sweeper.
//
// Adapted from an epoll reactor's event-dispatch loop, where a
// sync.Map fd-to-callback lookup becomes an rc.Registry cookie lookup
// and the callback invocation becomes a fixed readable/writable/accept
// dispatch.
package reactor

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-ws/protocol"
	"github.com/momentics/hioload-ws/queue"
	"github.com/momentics/hioload-ws/rc"
)

const (
	readChunkSize   = 256
	staleSweepEvery = 5 * time.Second
)

// Worker owns one reactor thread's entire I/O state.
type Worker struct {
	ID       int
	mux      Multiplexer
	wakeR    int
	wakeW    int
	ctrl     *queue.Channel[ctrlMsg]
	registry *rc.Registry[*protocol.Connection]

	shared  *Shared
	handler protocol.Handler

	head *protocol.Connection // intrusive list head; owned solely by this goroutine

	maxEvents    int
	staleMicros  atomic.Int64
	debugPending bool

	listenFd int // -1 until AddServer targets this worker

	lastSweep time.Time
}

// NewWorker constructs a worker with its own multiplexer and wake-pipe,
// registering the wake-pipe's read end under the reserved cookie 0.
func NewWorker(id int, shared *Shared, handler protocol.Handler, maxEvents int, staleMicros int64, debugPending bool) (*Worker, error) {
	mux, err := NewMultiplexer()
	if err != nil {
		return nil, err
	}
	rFd, wFd, err := wakePipe()
	if err != nil {
		mux.Close()
		return nil, err
	}
	if err := mux.Register(rFd, InterestRead, 0); err != nil {
		mux.Close()
		closeFd(rFd)
		closeFd(wFd)
		return nil, err
	}
	w := &Worker{
		ID:           id,
		mux:          mux,
		wakeR:        rFd,
		wakeW:        wFd,
		ctrl:         queue.New[ctrlMsg](),
		registry:     rc.NewRegistry[*protocol.Connection](),
		shared:       shared,
		handler:      handler,
		maxEvents:    maxEvents,
		debugPending: debugPending,
		listenFd:     -1,
	}
	w.staleMicros.Store(staleMicros)
	return w, nil
}

// SetStaleTimeoutMicros updates the idle-connection threshold this
// worker's sweep loop applies, effective on its next sweep pass. Safe
// to call from any goroutine; used to apply a hot-reloaded
// WsConfig.StaleTimeout without restarting the worker.
func (w *Worker) SetStaleTimeoutMicros(micros int64) {
	w.staleMicros.Store(micros)
}

// Poke wakes the worker's blocked Wait call from another goroutine.
func (w *Worker) Poke() { pokeWakePipe(w.wakeW) }

// AttachConnection implements the worker-injection protocol: it sends a
// Read control message carrying conn and pokes the wake-pipe, returning
// a channel that closes once the worker has linked conn into its list
// and registered it with the multiplexer.
func (w *Worker) AttachConnection(conn *protocol.Connection) <-chan struct{} {
	done := make(chan struct{})
	w.SendCtrl(ctrlMsg{kind: ctrlRead, conn: conn, done: done})
	return done
}

// RunVia starts the worker's event loop via execute, letting the caller
// route it through a task runtime instead of a bare `go` statement.
func (w *Worker) RunVia(execute func(func())) {
	execute(w.Run)
}

// SendCtrl enqueues a control message and pokes the wake-pipe so the
// worker observes it promptly even if currently blocked in Wait.
func (w *Worker) SendCtrl(m ctrlMsg) {
	w.ctrl.Send(m)
	w.Poke()
}

// linkConn pushes conn onto the head of the worker's intrusive list.
func (w *Worker) linkConn(conn *protocol.Connection) {
	conn.Next = w.head
	conn.Prev = nil
	if w.head != nil {
		w.head.Prev = conn
	}
	w.head = conn
}

// unlinkConn removes conn from the worker's intrusive list.
func (w *Worker) unlinkConn(conn *protocol.Connection) {
	if conn.Prev != nil {
		conn.Prev.Next = conn.Next
	} else if w.head == conn {
		w.head = conn.Next
	}
	if conn.Next != nil {
		conn.Next.Prev = conn.Prev
	}
	conn.Next, conn.Prev = nil, nil
}

// attachHooks wires a Connection's IOHooks to this worker's raw socket
// helpers and control channel.
func (w *Worker) attachHooks(conn *protocol.Connection) {
	fd := conn.Fd
	conn.Hooks = protocol.IOHooks{
		RawSend:  func(data []byte) (int, error) { return rawSend(fd, data) },
		Shutdown: func() { shutdownWrite(fd) },
		NotifyWritable: func() {
			w.SendCtrl(ctrlMsg{kind: ctrlWrite, conn: conn})
		},
	}
}

// register leaks conn into the registry and the multiplexer under the
// resulting ticket, recording the ticket on the connection itself.
func (w *Worker) register(conn *protocol.Connection, interest Interest) error {
	cell := rc.NewCell(conn)
	id := w.registry.IntoRaw(cell)
	conn.RegID = id
	conn.WriteInterest = interest&InterestWrite != 0
	return w.mux.Register(conn.Fd, interest, id)
}

// flushBeforeClose makes a bounded best-effort attempt to drain any
// buffered wbuf bytes synchronously before teardown closes the socket.
// A direct Send on a fresh or idle connection almost always completes
// without buffering, so this only matters on the rare path where the
// kernel send buffer was already under pressure.
func (w *Worker) flushBeforeClose(conn *protocol.Connection) {
	for i := 0; i < 8; i++ {
		empty, err := conn.DrainWrite()
		if empty || err != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// teardown un-leaks, unlinks, and closes conn. Any close-frame status
// the caller wants observed on the wire must be sent before calling
// teardown; teardown itself only tears down local state.
func (w *Worker) teardown(conn *protocol.Connection) {
	conn.Lock.Lock()
	conn.SetState(protocol.StateClosed)
	conn.Lock.Unlock()

	_ = w.mux.Unregister(conn.Fd)
	w.registry.TakeRaw(conn.RegID)
	w.unlinkConn(conn)
	closeFd(conn.Fd)
}

// Run is the per-thread event loop body. It returns once the endpoint
// halt flag is observed set.
func (w *Worker) Run() {
	events := make([]PollEvent, w.maxEvents)
	w.lastSweep = time.Now()

	for {
		n, err := w.mux.Wait(events, 1000)
		if w.shared.Halt() {
			w.shutdownSelf()
			return
		}
		if err != nil {
			continue
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			if ev.Cookie == 0 {
				drainWakePipe(w.wakeR)
				w.drainCtrl()
				continue
			}
			cell, ok := w.registry.FromRaw(ev.Cookie)
			if !ok {
				continue
			}
			conn := cell.Value()
			w.dispatch(conn, ev)
		}

		if time.Since(w.lastSweep) >= staleSweepEvery {
			w.sweepStale()
			w.lastSweep = time.Now()
		}
	}
}

// drainCtrl processes every control message currently queued without
// blocking.
func (w *Worker) drainCtrl() {
	w.ctrl.Drain(func(m ctrlMsg) {
		switch m.kind {
		case ctrlRead:
			if m.conn.CType == protocol.TypeServer {
				w.listenFd = m.conn.Fd
			}
			w.attachHooks(m.conn)
			interest := InterestRead
			if m.conn.WBuf.Len() > 0 {
				// A client connection queues its handshake request before
				// the non-blocking connect completes; arm write interest
				// so the first writable event flushes it.
				interest |= InterestWrite
			}
			if err := w.register(m.conn, interest); err == nil {
				w.linkConn(m.conn)
			}
			if m.done != nil {
				close(m.done)
			}
		case ctrlWrite:
			_ = w.mux.Rearm(m.conn.Fd, InterestRead|InterestWrite, m.conn.RegID)
			m.conn.WriteInterest = true
		}
	})
}

// dispatch routes one readiness event to the accept, readable, or
// writable path depending on the connection's type and the event kind.
func (w *Worker) dispatch(conn *protocol.Connection, ev PollEvent) {
	if conn.CType == protocol.TypeServer {
		if ev.Readable && w.shared.ShouldAccept(w.ID) {
			w.acceptLoop(conn)
			w.shared.AdvanceAcceptElection()
		}
		return
	}

	if ev.Error {
		w.teardown(conn)
		return
	}
	if ev.Readable {
		w.handleReadable(conn)
	}
	if ev.Writable && conn.State() != protocol.StateClosed {
		w.handleWritable(conn)
	}
}

// acceptLoop accepts connections off conn's listening socket until
// EAGAIN.
func (w *Worker) acceptLoop(listener *protocol.Connection) {
	for {
		fd, err := acceptNonblocking(listener.Fd)
		if err != nil {
			return
		}
		nc := protocol.NewConnection(fd, protocol.TypeServerConnection)
		w.attachHooks(nc)
		if err := w.register(nc, InterestRead); err != nil {
			closeFd(fd)
			continue
		}
		w.linkConn(nc)
		w.shared.AcceptTotal.Add(1)
	}
}

// handleReadable pulls up to readChunkSize bytes at a time, feeds the
// handshake or frame parser, and loops until EAGAIN or EOF.
func (w *Worker) handleReadable(conn *protocol.Connection) {
	var buf [readChunkSize]byte
	for {
		n, err := rawRecv(conn.Fd, buf[:])
		if n > 0 {
			conn.RBuf.Append(buf[:n])
			conn.Touch(nowMicros())
			w.parseBuffered(conn)
		}
		if err != nil {
			if err == protocol.ErrWouldBlock {
				return
			}
			w.teardown(conn)
			return
		}
		if n == 0 {
			// EOF.
			w.teardown(conn)
			return
		}
	}
}

// parseBuffered drives the handshake state machine, then frame
// decoding once the handshake is complete.
func (w *Worker) parseBuffered(conn *protocol.Connection) {
	if conn.State() == protocol.StateNeedHandshake {
		w.parseHandshake(conn)
		if conn.State() != protocol.StateHandshakeComplete {
			return
		}
	}
	if conn.State() == protocol.StateHandshakeComplete {
		if w.handler == nil {
			return
		}
		if protocol.DecodeAndDispatch(conn, w.handler) == protocol.DispatchProtocolError {
			_ = conn.Send(protocol.EncodeClose(protocol.StatusProtocolError), w.debugPending)
			w.flushBeforeClose(conn)
			w.teardown(conn)
		}
	}
}

// parseHandshake runs either the server or client handshake parser
// depending on conn.CType.
func (w *Worker) parseHandshake(conn *protocol.Connection) {
	raw := conn.RBuf.Bytes()

	if conn.CType == protocol.TypeClientConnection {
		result := protocol.ParseClientHandshake(raw)
		switch result.Status {
		case protocol.HandshakeIncomplete:
			return
		case protocol.HandshakeMalformed:
			w.shared.HandshakeRejectTotal.Add(1)
			w.teardown(conn)
			return
		}
		conn.RBuf.Consume(result.Consumed)
		conn.SetState(protocol.StateHandshakeComplete)
		return
	}

	result := protocol.ParseServerHandshake(raw)
	switch result.Status {
	case protocol.HandshakeIncomplete:
		return
	case protocol.HandshakeMalformed:
		w.shared.HandshakeRejectTotal.Add(1)
		_ = conn.Send(result.Response, w.debugPending)
		w.flushBeforeClose(conn)
		w.teardown(conn)
		return
	}
	conn.RBuf.Consume(result.Consumed)
	_ = conn.Send(result.Response, w.debugPending)
	conn.SetState(protocol.StateHandshakeComplete)
}

// handleWritable drains wbuf and drops write interest once empty.
func (w *Worker) handleWritable(conn *protocol.Connection) {
	empty, err := conn.DrainWrite()
	if err != nil {
		w.teardown(conn)
		return
	}
	if empty && conn.WriteInterest {
		conn.WriteInterest = false
		_ = w.mux.Rearm(conn.Fd, InterestRead, conn.RegID)
	}
}

// sweepStale closes any non-Server connection that has been idle
// longer than staleMicros.
func (w *Worker) sweepStale() {
	staleMicros := w.staleMicros.Load()
	if staleMicros <= 0 {
		return
	}
	now := nowMicros()
	conn := w.head
	for conn != nil {
		next := conn.Next
		if conn.CType != protocol.TypeServer && now-conn.LastActivity() > staleMicros {
			_ = conn.Send(protocol.EncodeClose(protocol.StatusStaleTimeout), w.debugPending)
			w.flushBeforeClose(conn)
			w.teardown(conn)
			w.shared.StaleClosedTotal.Add(1)
		}
		conn = next
	}
}

// shutdownSelf runs the worker-exit sequence: close every non-Server
// connection, release the wake-pipe and multiplexer. Worker 0
// additionally closes the shared listening socket.
func (w *Worker) shutdownSelf() {
	conn := w.head
	for conn != nil {
		next := conn.Next
		if conn.CType != protocol.TypeServer {
			w.teardown(conn)
		}
		conn = next
	}
	if w.ID == 0 && w.listenFd != -1 {
		closeFd(w.listenFd)
	}
	w.ctrl.Close()
	closeFd(w.wakeR)
	closeFd(w.wakeW)
	_ = w.mux.Close()
}

func nowMicros() int64 { return time.Now().UnixMicro() }
