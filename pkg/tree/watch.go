package tree

import (
	"github.com/vanderheijden86/vtree/pkg/model"
)

// watch holds the subscriptions kept on one visible node.
type watch struct {
	node model.Node
	list *model.List

	childrenSub model.Subscription
	listSub     model.Subscription
	disposeSub  model.Subscription
}

// watcher keeps listeners on exactly the set of visible nodes. Every node
// entering the visible set is attached once and detached once when it leaves
// the set, is disposed, or the watcher is released.
type watcher struct {
	watches   map[model.Node]*watch
	onChange  func()
	onDispose func(model.Node)

	attached int
	detached int
}

func newWatcher(onChange func(), onDispose func(model.Node)) *watcher {
	return &watcher{
		watches:   make(map[model.Node]*watch),
		onChange:  onChange,
		onDispose: onDispose,
	}
}

// sync attaches newly visible nodes and detaches the ones that left.
func (w *watcher) sync(visible []model.Node) {
	want := make(map[model.Node]bool, len(visible))
	for _, n := range visible {
		want[n] = true
	}
	for n := range w.watches {
		if !want[n] {
			w.detach(n)
		}
	}
	for _, n := range visible {
		if wt, ok := w.watches[n]; ok {
			w.repoint(wt)
			continue
		}
		w.attach(n)
	}
}

func (w *watcher) attach(n model.Node) {
	wt := &watch{node: n}
	w.watches[n] = wt
	w.attached++

	wt.childrenSub = n.OnChildrenChange(func() {
		w.repoint(wt)
		w.onChange()
	})
	wt.disposeSub = n.OnDispose(func() {
		w.detach(n)
		w.onDispose(n)
	})
	w.repoint(wt)
}

// repoint moves the list subscription to the node's current children list.
func (w *watcher) repoint(wt *watch) {
	l := wt.node.Children()
	if l == wt.list {
		return
	}
	if wt.listSub != nil {
		wt.listSub.Release()
		wt.listSub = nil
	}
	wt.list = l
	if l != nil {
		wt.listSub = l.OnChange(func(model.Change) { w.onChange() })
	}
}

func (w *watcher) detach(n model.Node) {
	wt, ok := w.watches[n]
	if !ok {
		return
	}
	delete(w.watches, n)
	w.detached++

	wt.childrenSub.Release()
	wt.disposeSub.Release()
	if wt.listSub != nil {
		wt.listSub.Release()
	}
}

// watching reports whether n currently has listeners attached.
func (w *watcher) watching(n model.Node) bool {
	_, ok := w.watches[n]
	return ok
}

func (w *watcher) releaseAll() {
	for n := range w.watches {
		w.detach(n)
	}
}
