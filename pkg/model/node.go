// Package model defines the node contract consumed by the virtual tree and a
// general-purpose in-memory node implementation.
//
// A node exposes a label, an observable ordered children list that may be
// nil ("not loaded yet"), change notification when that list is replaced,
// and disposal notification. Open/closed state is never stored on the node;
// it belongs to whichever view is displaying it.
package model

// Node is the capability set required from any tree node. Implementations
// must be comparable (normally pointer types) because views key state by
// node identity.
type Node interface {
	Label() string

	// Children returns the current children list, or nil when the children
	// have not been loaded yet.
	Children() *List
	SetChildren(l *List)

	// OnChildrenChange fires after SetChildren replaced the list.
	OnChildrenChange(fn func()) Subscription
	// OnDispose fires once when the node is disposed.
	OnDispose(fn func()) Subscription
	Disposed() bool
}

// Leaf is implemented by nodes that can tell they will never have children.
type Leaf interface {
	IsLeaf() bool
}

// Keyed is implemented by nodes with a stable identity across sessions. An
// empty key means the node has none.
type Keyed interface {
	Key() string
}

// IsLeaf reports whether n declares itself a leaf.
func IsLeaf(n Node) bool {
	l, ok := n.(Leaf)
	return ok && l.IsLeaf()
}
