package model

import "fmt"

// ChangeKind identifies the mutation reported by a List.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeRemove
	ChangeMove
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeMove:
		return "move"
	case ChangeReset:
		return "reset"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes one mutation of a List. Index is the position affected
// (the source position for moves) and Count the number of items added or
// removed. For moves, To is the destination position.
type Change struct {
	Kind  ChangeKind
	Index int
	Count int
	To    int
}

// List is an observable ordered collection of nodes. Every mutation bumps
// Version and notifies the OnChange listeners after the slice is updated.
type List struct {
	items     []Node
	version   uint64
	disposed  bool
	listeners Listeners[func(Change)]
}

// NewList returns a list holding items in order.
func NewList(items ...Node) *List {
	l := &List{}
	l.items = append(l.items, items...)
	return l
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the item at i, or nil when i is out of range.
func (l *List) At(i int) Node {
	if l == nil || i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Items returns a copy of the items.
func (l *List) Items() []Node {
	if l == nil {
		return nil
	}
	out := make([]Node, len(l.items))
	copy(out, l.items)
	return out
}

// IndexOf returns the position of n, or -1.
func (l *List) IndexOf(n Node) int {
	if l == nil {
		return -1
	}
	for i, it := range l.items {
		if it == n {
			return i
		}
	}
	return -1
}

// Version increases with every mutation. Traversals compare versions to
// detect lists that changed underneath them.
func (l *List) Version() uint64 {
	if l == nil {
		return 0
	}
	return l.version
}

// Push appends nodes.
func (l *List) Push(nodes ...Node) {
	if len(nodes) == 0 {
		return
	}
	at := len(l.items)
	l.items = append(l.items, nodes...)
	l.changed(Change{Kind: ChangeAdd, Index: at, Count: len(nodes)})
}

// Insert places n at position i, clamped to the list bounds.
func (l *List) Insert(i int, n Node) {
	i = max(0, min(i, len(l.items)))
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = n
	l.changed(Change{Kind: ChangeAdd, Index: i, Count: 1})
}

// RemoveAt removes and returns the item at i. It returns nil when i is out
// of range.
func (l *List) RemoveAt(i int) Node {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	n := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.changed(Change{Kind: ChangeRemove, Index: i, Count: 1})
	return n
}

// Remove removes the first occurrence of n and reports whether it was found.
func (l *List) Remove(n Node) bool {
	i := l.IndexOf(n)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// Move relocates the item at from to position to.
func (l *List) Move(from, to int) {
	if from < 0 || from >= len(l.items) || to < 0 || to >= len(l.items) || from == to {
		return
	}
	n := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items, nil)
	copy(l.items[to+1:], l.items[to:])
	l.items[to] = n
	l.changed(Change{Kind: ChangeMove, Index: from, Count: 1, To: to})
}

// Reset replaces the whole content.
func (l *List) Reset(items ...Node) {
	l.items = append(l.items[:0:0], items...)
	l.changed(Change{Kind: ChangeReset, Count: len(items)})
}

// OnChange registers fn for every mutation.
func (l *List) OnChange(fn func(Change)) Subscription {
	return l.listeners.Add(fn)
}

// ListenerCount returns how many change listeners are attached.
func (l *List) ListenerCount() int {
	if l == nil {
		return 0
	}
	return l.listeners.Len()
}

// Disposed reports whether Dispose has been called.
func (l *List) Disposed() bool {
	return l != nil && l.disposed
}

// Dispose marks the list unusable. Listeners are kept so that their owners
// can still release them; they are no longer notified.
func (l *List) Dispose() {
	l.disposed = true
}

func (l *List) changed(c Change) {
	l.version++
	if l.disposed {
		return
	}
	for _, fn := range l.listeners.Snapshot() {
		fn(c)
	}
}
