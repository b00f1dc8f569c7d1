package model

import "sort"

// Subscription is the handle returned when a listener is registered.
// Release detaches the listener; calling it more than once is a no-op.
type Subscription interface {
	Release()
}

// SubscriptionFunc adapts a plain function to Subscription. The function
// runs at most once.
type SubscriptionFunc func()

// Release calls f.
func (f SubscriptionFunc) Release() { f() }

// Listeners is an ordered set of callbacks of one signature. The zero value
// is ready to use. It is not safe for concurrent use; nodes and lists are
// mutated from a single logical thread.
type Listeners[F any] struct {
	next uint64
	fns  map[uint64]F
}

type subscription[F any] struct {
	set      *Listeners[F]
	id       uint64
	released bool
}

func (s *subscription[F]) Release() {
	if s.released {
		return
	}
	s.released = true
	delete(s.set.fns, s.id)
}

// Add registers fn and returns its subscription.
func (l *Listeners[F]) Add(fn F) Subscription {
	if l.fns == nil {
		l.fns = make(map[uint64]F)
	}
	l.next++
	l.fns[l.next] = fn
	return &subscription[F]{set: l, id: l.next}
}

// Len returns the number of registered callbacks.
func (l *Listeners[F]) Len() int {
	return len(l.fns)
}

// Snapshot returns the callbacks in registration order. Callers iterate the
// snapshot so listeners may release themselves while being notified.
func (l *Listeners[F]) Snapshot() []F {
	if len(l.fns) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]F, len(ids))
	for i, id := range ids {
		out[i] = l.fns[id]
	}
	return out
}

// Clear drops every callback. Outstanding subscriptions become no-ops.
func (l *Listeners[F]) Clear() {
	l.fns = nil
}
