package rc

import "sync/atomic"

// Registry is the table (one per reactor worker) standing in for "raw pointer
// handed to the multiplexer as user cookie" in a memory-safe language.
// Grounded in the callbacks sync.Map keyed by fd found in a typical
// epoll reactor: here the key is a sequential ticket rather than an fd,
// since one connection may be registered under several interest sets
// across its lifetime but must keep a single stable cookie.
type Registry[T any] struct {
	next    atomic.Uint64
	entries syncMap[uint64, *Cell[T]]
}

// NewRegistry constructs an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// IntoRaw surrenders cell to the registry, marks it leaked, and returns
// the stable ticket to be used as the multiplexer cookie. The caller
// must already hold the single owning reference.
func (r *Registry[T]) IntoRaw(cell *Cell[T]) uint64 {
	id := r.next.Add(1)
	cell.leaked.Store(true)
	r.entries.Store(id, cell)
	return id
}

// FromRaw dereferences a ticket without taking ownership back; this is
// what a worker does on every dispatch to resolve a cookie to a cell.
func (r *Registry[T]) FromRaw(id uint64) (*Cell[T], bool) {
	return r.entries.Load(id)
}

// TakeRaw removes the ticket from the registry and clears the leaked
// bit, returning ordinary reference-counted destruction to the caller.
// This is the "un-leak" step that must happen exactly once per
// connection, on teardown.
func (r *Registry[T]) TakeRaw(id uint64) (*Cell[T], bool) {
	cell, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	cell.leaked.Store(false)
	return cell, true
}

// Len reports the number of currently leaked cells; used by tests
// asserting that TakeRaw un-leaks what IntoRaw registered.
func (r *Registry[T]) Len() int {
	return r.entries.Len()
}
