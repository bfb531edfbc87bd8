// Package runtime implements the elastic, bounded worker pool ("task
// runtime") that hosts the reactor event loops.
//
// Adapted from a concurrency executor that grows and shrinks around a
// fixed worker count with per-worker local queues; this pool instead
// bounds itself by [min, max] and keys expansion/contraction off a
// shared waiting-worker counter rather than per-worker local queue
// depth.
package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-ws/queue"
)

// Task is a unit of work submitted to the pool.
type Task func() any

type haltMsg struct{}

type taskMsg struct {
	fn       Task
	reply    *queue.Channel[any]
	complete *atomic.Bool
}

type poolMsg struct {
	halt bool
	task taskMsg
}

// Pool is an elastic worker pool bounded by [Min, Max] threads.
type Pool struct {
	min, max int

	tasks *queue.Channel[poolMsg]

	mu             sync.RWMutex
	totalWorkers   int
	waitingWorkers int
	haltFlag       bool

	wg sync.WaitGroup
}

// New starts a Pool with exactly min workers running; the pool never
// grows past max and never shrinks below min.
func New(min, max int) *Pool {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	p := &Pool{
		min:   min,
		max:   max,
		tasks: queue.New[poolMsg](),
	}
	for i := 0; i < min; i++ {
		p.spawnWorkerLocked()
	}
	return p
}

// spawnWorkerLocked must be called with p.mu held for writing, except
// during New (no concurrent access yet).
func (p *Pool) spawnWorkerLocked() {
	p.totalWorkers++
	p.wg.Add(1)
	go p.workerLoop()
}

// Handle represents a single submitted task.
type Handle struct {
	reply    *queue.Channel[any]
	complete *atomic.Bool
}

// BlockOn waits for the task's single result.
func (h *Handle) BlockOn() any {
	v, _ := h.reply.Recv()
	return v
}

// IsComplete polls completion without blocking.
func (h *Handle) IsComplete() bool {
	return h.complete.Load()
}

// Execute submits f for execution on some worker and returns a Handle.
func (p *Pool) Execute(f Task) *Handle {
	h := &Handle{
		reply:    queue.New[any](),
		complete: &atomic.Bool{},
	}
	p.tasks.Send(poolMsg{task: taskMsg{fn: f, reply: h.reply, complete: h.complete}})
	return h
}

// workerLoop is the per-worker loop: contraction check and halt check
// happen at the top of every iteration; expansion happens exactly
// once, only when the waiting count drops to zero while under
// capacity.
func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		if p.haltFlag {
			p.totalWorkers--
			p.mu.Unlock()
			return
		}
		p.waitingWorkers++
		if p.waitingWorkers > p.min {
			p.waitingWorkers--
			p.totalWorkers--
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		msg, ok := p.tasks.Recv()
		if !ok {
			// channel closed during Stop(); treat as halt.
			p.mu.Lock()
			p.totalWorkers--
			p.mu.Unlock()
			return
		}

		if msg.halt {
			continue
		}

		p.mu.Lock()
		p.waitingWorkers--
		if p.waitingWorkers == 0 && p.totalWorkers < p.max && !p.haltFlag {
			p.spawnWorkerLocked()
		}
		p.mu.Unlock()

		result := func() (res any) {
			defer func() { _ = recover() }()
			return msg.task.fn()
		}()
		msg.task.complete.Store(true)
		msg.task.reply.Send(result)
	}
}

// Stop halts the pool: it sets the halt flag, wakes every worker with a
// Halt message per max slot, and joins every tracked goroutine.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.haltFlag = true
	p.mu.Unlock()

	for i := 0; i < p.max; i++ {
		p.tasks.Send(poolMsg{halt: true})
	}
	p.wg.Wait()
	p.tasks.Close()
}

// NumWorkers reports the current worker count (for tests/metrics).
func (p *Pool) NumWorkers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalWorkers
}
