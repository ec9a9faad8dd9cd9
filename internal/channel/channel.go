// Package channel provides the unbounded blocking queue that hands values
// between the bus thread and external I/O goroutines. It is the only place
// in the repository where state is shared across threads.
package channel

import "sync"

type queue[T any] struct {
	mu    sync.Mutex
	cond  sync.Cond
	items []T
}

// Sender is the producing half of a channel. Send never blocks, so a Sender
// may safely be shared by any number of goroutines.
type Sender[T any] struct {
	q *queue[T]
}

// Receiver is the consuming half of a channel. There must be exactly one
// consumer.
type Receiver[T any] struct {
	q *queue[T]
}

// New creates a connected Sender/Receiver pair.
func New[T any]() (*Sender[T], *Receiver[T]) {
	q := &queue[T]{}
	q.cond.L = &q.mu
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

// Send appends v to the queue and wakes the receiver if it is blocked.
func (s *Sender[T]) Send(v T) {
	s.q.mu.Lock()
	s.q.items = append(s.q.items, v)
	s.q.mu.Unlock()
	s.q.cond.Signal()
}

// Recv removes and returns the oldest queued value, blocking until one is
// available. There is no timeout or cancellation: callers that need shutdown
// must arrange a side channel instead of relying on Recv returning.
func (r *Receiver[T]) Recv() T {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	for len(r.q.items) == 0 {
		r.q.cond.Wait()
	}
	v := r.q.items[0]
	r.q.items = r.q.items[1:]
	return v
}

// Available reports whether a value can be received without blocking.
func (r *Receiver[T]) Available() bool {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items) > 0
}

// Len returns the number of queued values.
func (r *Receiver[T]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items)
}

// Clear drops every queued value.
func (r *Receiver[T]) Clear() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	r.q.items = nil
}
