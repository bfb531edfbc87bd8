package endpoint

import (
	"errors"
	"sync"
	"time"

	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/protocol"
	"github.com/momentics/hioload-ws/reactor"
	"github.com/momentics/hioload-ws/runtime"
)

// ErrNotInitialized is returned by Stop on any call after the first.
var ErrNotInitialized = errors.New("endpoint not initialized")

// Response is returned by AddClient: a thin wrapper letting the caller
// send frames on the freshly connected session.
type Response struct {
	protocol.WsResponse
}

// Snapshot is the ambient operational status GetSnapshot exposes.
type Snapshot struct {
	WorkerCount      int
	ActiveWorkers    int
	AcceptRoundTrips uint64
}

// Endpoint is the shared-state façade: a vector of workers, the task
// runtime hosting their event loops, the registered handler, and the
// round-robin/halt state shared across add_server/add_client calls.
type Endpoint struct {
	mu      sync.RWMutex
	started bool
	stopped bool

	cfg     WsConfig
	handler protocol.Handler
	workers []*reactor.Worker
	shared  *reactor.Shared
	pool    *runtime.Pool

	Metrics *control.MetricsRegistry
	Config  *control.ConfigStore
	Debug   *control.DebugProbes
}

// New constructs an unstarted Endpoint, wiring the ambient control
// layer (config store, metrics registry, debug probes) alongside it.
func New() *Endpoint {
	e := &Endpoint{
		Metrics: control.NewMetricsRegistry(),
		Config:  control.NewConfigStore(),
		Debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(e.Debug)
	e.Debug.RegisterProbe("endpoint.snapshot", func() any { return e.GetSnapshot() })
	return e
}

// Start creates the task runtime and one worker per configured thread,
// then executes each worker's event loop as a runtime task.
func (e *Endpoint) Start(cfg WsConfig, handler protocol.Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("endpoint already started")
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.MaxEvents < 1 {
		cfg.MaxEvents = 64
	}

	e.cfg = cfg
	e.handler = handler
	e.shared = reactor.NewShared(cfg.Threads)
	e.pool = runtime.New(cfg.Threads, cfg.Threads)

	staleMicros := int64(cfg.StaleTimeout / 1000)
	e.workers = make([]*reactor.Worker, cfg.Threads)
	for i := 0; i < cfg.Threads; i++ {
		w, err := reactor.NewWorker(i, e.shared, handler, cfg.MaxEvents, staleMicros, cfg.DebugPending)
		if err != nil {
			return err
		}
		e.workers[i] = w
	}
	for _, w := range e.workers {
		w := w
		w.RunVia(func(fn func()) { e.pool.Execute(func() any { fn(); return nil }) })
	}

	e.Config.OnReload(func() { e.Debug.RegisterProbe("config.snapshot", func() any { return e.Config.GetSnapshot() }) })
	e.Config.SetConfig(map[string]any{
		"threads":          cfg.Threads,
		"max_events":       cfg.MaxEvents,
		"stale_timeout_ms": cfg.StaleTimeout.Milliseconds(),
	})

	e.started = true
	return nil
}

// UpdateStaleTimeout applies a new idle-connection threshold to every
// running worker without restarting the endpoint, records it in the
// config store, and fires the registered hot-reload hooks.
func (e *Endpoint) UpdateStaleTimeout(d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return ErrNotInitialized
	}

	e.cfg.StaleTimeout = d
	staleMicros := int64(d / 1000)
	for _, w := range e.workers {
		w.SetStaleTimeoutMicros(staleMicros)
	}

	e.Config.SetConfig(map[string]any{"stale_timeout_ms": d.Milliseconds()})
	control.TriggerHotReload()
	return nil
}

// AddServer binds once, then injects the same listening socket into
// every worker's list so round-robin acceptor election has a copy to
// accept on in each thread.
func (e *Endpoint) AddServer(cfg WsServerConfig) (uint16, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return 0, ErrNotInitialized
	}

	listener, boundPort, err := reactor.ListenTCP(cfg.Addr, cfg.Port, cfg.Backlog)
	if err != nil {
		return 0, err
	}

	// Each worker gets its own Connection aliasing the shared listen fd:
	// a Connection is threaded onto exactly one worker's intrusive list
	// via its own Next/Prev fields, so the same struct cannot be
	// injected into more than one worker.
	for i, w := range e.workers {
		lc := listener
		if i > 0 {
			lc = protocol.NewConnection(listener.Fd, protocol.TypeServer)
		}
		done := w.AttachConnection(lc)
		<-done
	}
	return boundPort, nil
}

// AddClient connects, picks a worker by round-robin (special-cased to
// worker 0 when Threads == 0, which Start already normalizes to 1),
// injects, and returns a Response usable for sending frames once the
// handshake completes.
func (e *Endpoint) AddClient(cfg WsClientConfig) (*Response, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return nil, ErrNotInitialized
	}

	conn, err := reactor.ConnectTCP(cfg.Host, cfg.Port)
	if err != nil {
		return nil, err
	}

	idx := e.shared.NextWorker()
	done := e.workers[idx].AttachConnection(conn)
	<-done

	return &Response{WsResponse: protocol.WsResponse{Conn: conn}}, nil
}

// Stop write-locks, sets halt, pokes every worker, and stops the task
// runtime. Idempotent-safe: a second call returns ErrNotInitialized.
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped {
		return ErrNotInitialized
	}
	e.stopped = true

	e.shared.SetHalt()
	for _, w := range e.workers {
		w.Poke()
	}
	e.pool.Stop()
	return nil
}

// GetSnapshot reports ambient operational status and refreshes the
// metrics registry's named gauges (worker_count, stale_closed_total,
// accept_total, handshake_reject_total), so Metrics holds the values as
// of the most recent GetSnapshot call (including ones made through the
// "endpoint.snapshot" debug probe).
func (e *Endpoint) GetSnapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		WorkerCount:      len(e.workers),
		ActiveWorkers:    e.pool.NumWorkers(),
		AcceptRoundTrips: e.shared.RoundRobin.Load(),
	}

	e.Metrics.Set("worker_count", snap.WorkerCount)
	e.Metrics.Set("accept_total", e.shared.AcceptTotal.Load())
	e.Metrics.Set("handshake_reject_total", e.shared.HandshakeRejectTotal.Load())
	e.Metrics.Set("stale_closed_total", e.shared.StaleClosedTotal.Load())

	return snap
}
