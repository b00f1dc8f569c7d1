package model

// Item is an in-memory Node. Items created with NewNode start with an empty
// children list, items created with NewDeferred start with nil children, and
// items created with NewLeaf never have children.
type Item struct {
	name     string
	key      string
	leaf     bool
	children *List
	disposed bool

	childrenListeners Listeners[func()]
	disposeListeners  Listeners[func()]
}

// NewNode returns a node with an empty, loaded children list.
func NewNode(name string, children ...Node) *Item {
	return &Item{name: name, children: NewList(children...)}
}

// NewDeferred returns a node whose children are not loaded yet.
func NewDeferred(name string) *Item {
	return &Item{name: name}
}

// NewLeaf returns a node that never has children.
func NewLeaf(name string) *Item {
	return &Item{name: name, leaf: true}
}

// WithKey sets a stable persistence key and returns the item.
func (it *Item) WithKey(key string) *Item {
	it.key = key
	return it
}

func (it *Item) Label() string { return it.name }

// Name is an alias of Label.
func (it *Item) Name() string { return it.name }

// SetName renames the item.
func (it *Item) SetName(name string) { it.name = name }

// Key returns the persistence key set with WithKey, or "" when none was
// set. Unkeyed items are not restored across sessions.
func (it *Item) Key() string { return it.key }

func (it *Item) IsLeaf() bool { return it.leaf }

func (it *Item) Children() *List { return it.children }

// SetChildren replaces the children list and notifies listeners. Setting the
// same list again does nothing.
func (it *Item) SetChildren(l *List) {
	if it.children == l {
		return
	}
	it.children = l
	if it.disposed {
		return
	}
	for _, fn := range it.childrenListeners.Snapshot() {
		fn()
	}
}

func (it *Item) OnChildrenChange(fn func()) Subscription {
	return it.childrenListeners.Add(fn)
}

func (it *Item) OnDispose(fn func()) Subscription {
	return it.disposeListeners.Add(fn)
}

// ChildrenListenerCount returns how many children-change listeners are
// attached.
func (it *Item) ChildrenListenerCount() int { return it.childrenListeners.Len() }

// DisposeListenerCount returns how many dispose listeners are attached.
func (it *Item) DisposeListenerCount() int { return it.disposeListeners.Len() }

func (it *Item) Disposed() bool { return it.disposed }

// Dispose disposes the children (depth first), the children list, then the
// item itself. A second call is a no-op.
func (it *Item) Dispose() {
	if it.disposed {
		return
	}
	if it.children != nil {
		for _, c := range it.children.Items() {
			if d, ok := c.(interface{ Dispose() }); ok {
				d.Dispose()
			}
		}
	}
	it.disposed = true
	for _, fn := range it.disposeListeners.Snapshot() {
		fn()
	}
	if it.children != nil {
		it.children.Dispose()
	}
}
