package reactor

import (
	"sync"
	"sync/atomic"
)

// Shared is the endpoint-wide state every worker in a multi-reactor
// group consults: a single round-robin counter used both to elect the
// next acceptor and to assign the next client connection to a worker,
// plus a readers-writer-locked halt flag (every event-loop iteration
// takes the read lock once before acting on the flag).
//
// Grounded in a multi-acceptor design that gated acceptance behind a
// single mutex; this reimplementation swaps that out for a lock-free
// counter for election, since advancing it is a plain increment rather
// than a critical section, while keeping the halt flag on an explicit
// RWMutex since readers vastly outnumber the single writer that flips
// it at shutdown.
type Shared struct {
	RoundRobin           atomic.Uint64
	AcceptTotal          atomic.Uint64
	HandshakeRejectTotal atomic.Uint64
	StaleClosedTotal     atomic.Uint64
	ThreadCount          int

	haltMu sync.RWMutex
	halted bool
}

// NewShared builds group state for threadCount cooperating workers.
func NewShared(threadCount int) *Shared {
	if threadCount < 1 {
		threadCount = 1
	}
	return &Shared{ThreadCount: threadCount}
}

// ShouldAccept reports whether workerIndex is currently elected to call
// accept: the elected acceptor is `round_robin_counter mod
// thread_count`, read without consuming it. The elected worker drains
// accept to EAGAIN, then calls AdvanceAcceptElection exactly once.
func (s *Shared) ShouldAccept(workerIndex int) bool {
	n := s.RoundRobin.Load()
	return int(n%uint64(s.ThreadCount)) == workerIndex
}

// AdvanceAcceptElection rotates the election to the next worker. Called
// exactly once by the elected acceptor after it drains accept to
// EAGAIN.
func (s *Shared) AdvanceAcceptElection() {
	s.RoundRobin.Add(1)
}

// NextWorker consumes the same round-robin counter ShouldAccept/
// AdvanceAcceptElection use and returns the worker index a freshly
// connected client should be assigned to, via fetch_add semantics.
func (s *Shared) NextWorker() int {
	n := s.RoundRobin.Add(1) - 1
	return int(n % uint64(s.ThreadCount))
}

// Halt reports whether the group has been asked to shut down.
func (s *Shared) Halt() bool {
	s.haltMu.RLock()
	defer s.haltMu.RUnlock()
	return s.halted
}

// SetHalt takes the write lock, flips the group halt flag; every worker
// observes it on its next event-loop iteration and begins teardown.
func (s *Shared) SetHalt() {
	s.haltMu.Lock()
	s.halted = true
	s.haltMu.Unlock()
}
