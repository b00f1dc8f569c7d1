// Package tree implements a virtual tree: the visible slice of a large,
// mutable tree model is flattened into a lookup table and rendered onto a
// fixed pool of reusable row widgets.
//
// All methods must be called from one logical thread, the one that drains
// the tree's Scheduler. Lazy loads run on goroutines and re-enter the tree
// through the Scheduler.
package tree

import (
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vanderheijden86/vtree/pkg/loop"
	"github.com/vanderheijden86/vtree/pkg/model"
)

// NodeState is the open state the tree tracks for a node.
type NodeState int

const (
	StateUnknown NodeState = iota
	StateClosed
	StateOpen
	StateTransitioning // Children are being loaded
)

func (s NodeState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

type nodeInfo struct {
	state   NodeState
	req     ulid.ULID
	hasReq  bool
	loadErr error
}

// Stats are counters exposed for diagnostics and tests.
type Stats struct {
	Rebuilds        int
	Binds           int
	Unbinds         int
	Attached        int // Nodes that got listeners
	Detached        int // Nodes whose listeners were released
	Loads           int // Loader invocations
	Pending         int // Lazy loads waiting for their result
	StructuralRaces int
}

// Tree is the viewport controller.
type Tree struct {
	root   model.Node
	nodes  map[model.Node]*nodeInfo
	lookup *LookupTable
	watch  *watcher
	pool   *Pool
	fetch  *fetcher
	start  int

	dirty     bool // Lookup table is stale
	scheduled bool // A refresh is posted
	rendering bool
	disposed  bool

	restored      map[string]bool
	openListeners model.Listeners[func(model.Node, bool)]
	races         int
	builds        int

	poolSize      int
	loader        Loader
	sched         Scheduler
	queue         *loop.Queue // Set when the tree owns its scheduler
	log           zerolog.Logger
	hideRoot      bool
	configureItem func(Renderer)
	factory       func() Renderer
	label         func(model.Node) string
	key           func(model.Node) string
	store         StateStore
}

// New creates a tree without a model.
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes:    make(map[model.Node]*nodeInfo),
		lookup:   &LookupTable{},
		poolSize: DefaultPoolSize,
		log:      zerolog.Nop(),
		label:    nodeLabel,
		key:      NodeKey,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sched == nil {
		t.queue = loop.New()
		t.sched = t.queue
	}
	t.watch = newWatcher(t.invalidate, t.nodeDisposed)
	t.fetch = newFetcher(t.loader, t.sched, t.log)

	t.pool = NewPool(t.poolSize, t.factory)
	for i := 0; i < t.pool.Size(); i++ {
		w := t.pool.Widget(i)
		w.OnToggle(func() { t.toggle(w) })
		if t.configureItem != nil {
			t.configureItem(w)
		}
	}
	return t
}

// SetModel attaches root, opens it and renders the first viewport. The
// previous model, if any, is detached first.
func (t *Tree) SetModel(root model.Node) {
	if t.disposed {
		return
	}
	t.detachModel()
	t.root = root
	t.start = 0
	if root == nil || root.Disposed() {
		t.root = nil
		t.lookup = &LookupTable{}
		return
	}
	t.restoreState()
	t.openNode(root)
	t.rebuild()
}

// Model returns the attached root.
func (t *Tree) Model() model.Node { return t.root }

func (t *Tree) detachModel() {
	t.watch.releaseAll()
	t.pool.UnbindAll()
	for _, info := range t.nodes {
		if info.hasReq {
			t.fetch.forget(info.req)
		}
	}
	t.nodes = make(map[model.Node]*nodeInfo)
	t.lookup = &LookupTable{}
	t.dirty = false
}

// OpenNode opens n. A node whose children are not loaded yet is loaded
// first when a Loader is configured; the rows appear when the load
// completes. Opening an open node is a no-op. Load failures are reported on
// the node's row, never returned.
func (t *Tree) OpenNode(n model.Node) error {
	if err := t.check("open", n); err != nil {
		return err
	}
	if t.openNode(n) {
		t.changed()
	} else {
		t.render()
	}
	return nil
}

// CloseNode closes n, removing its descendants from the lookup table.
// Closing a closed node is a no-op. Closing a node whose children are still
// loading cancels the pending result.
func (t *Tree) CloseNode(n model.Node) error {
	if err := t.check("close", n); err != nil {
		return err
	}
	if t.closeNode(n) {
		t.changed()
	} else {
		t.render()
	}
	return nil
}

// OpenNodeAndParents opens n and every loaded ancestor of n.
func (t *Tree) OpenNodeAndParents(n model.Node) error {
	if err := t.check("open", n); err != nil {
		return err
	}
	changed := false
	for _, p := range t.pathTo(n) {
		if t.openNode(p) {
			changed = true
		}
	}
	if t.openNode(n) {
		changed = true
	}
	if changed {
		t.changed()
	} else {
		t.render()
	}
	return nil
}

// OpenAll opens every openable visible node down to maxDepth (negative means
// unlimited), repeating as newly visible loaded nodes appear. Nodes that need
// a lazy load start loading; call OpenAll again once they complete to go
// further. Nodes whose last load failed are skipped. It returns the number
// of nodes opened or put in transition.
func (t *Tree) OpenAll(maxDepth int) int {
	if t.disposed || t.root == nil {
		return 0
	}
	t.refreshIfDirty()
	total := 0
	for {
		n := 0
		for row := 0; row < t.lookup.Len(); row++ {
			node := t.lookup.At(row)
			if maxDepth >= 0 && t.lookup.Depth(row) >= maxDepth {
				continue
			}
			before := t.NodeState(node)
			if before == StateOpen || before == StateTransitioning {
				continue
			}
			if !t.openable(node) || t.LoadError(node) != nil {
				continue
			}
			t.openNode(node)
			if t.NodeState(node) != before {
				n++
			}
		}
		if n == 0 {
			break
		}
		total += n
		t.changed()
	}
	return total
}

// CloseAll closes every node except the root.
func (t *Tree) CloseAll() {
	if t.disposed || t.root == nil {
		return
	}
	changed := len(t.restored) > 0
	t.restored = nil
	for n := range t.nodes {
		if n == t.root {
			continue
		}
		if t.closeNode(n) {
			changed = true
		}
	}
	if changed {
		t.changed()
	}
}

// openNode updates the state of n and reports whether the visible structure
// changed. It does not rebuild.
func (t *Tree) openNode(n model.Node) bool {
	info := t.info(n)
	switch info.state {
	case StateTransitioning:
		return false
	case StateClosed:
		if info.hasReq {
			// Re-opened before the pending load resolved: adopt it.
			info.state = StateTransitioning
			return false
		}
	case StateOpen:
		if n.Children() != nil || t.loader == nil || model.IsLeaf(n) {
			return false
		}
	}

	if n.Children() == nil && t.loader != nil && !model.IsLeaf(n) {
		t.startLoad(n, info)
		return false
	}

	info.state = StateOpen
	info.loadErr = nil
	t.notifyOpen(n, true)
	return true
}

func (t *Tree) closeNode(n model.Node) bool {
	if n == t.root && (t.hideRoot || t.disposed) {
		return false
	}
	delete(t.restored, t.key(n))
	info, ok := t.nodes[n]
	if !ok {
		return false
	}
	switch info.state {
	case StateTransitioning:
		// The request stays pending so that re-opening adopts it; if the
		// node is still closed when it resolves the result is dropped.
		info.state = StateClosed
		t.log.Debug().Str("node", n.Label()).Msg("closed while loading")
		return false
	case StateOpen:
		info.state = StateClosed
		t.notifyOpen(n, false)
		return true
	}
	return false
}

func (t *Tree) startLoad(n model.Node, info *nodeInfo) {
	info.state = StateTransitioning
	info.loadErr = nil
	var id ulid.ULID
	id = t.fetch.start(n, func(children []model.Node, err error) {
		t.finishLoad(n, id, children, err)
	})
	info.req = id
	info.hasReq = true
}

// finishLoad applies a lazy load result. It only takes effect when the node
// is still transitioning for this exact request.
func (t *Tree) finishLoad(n model.Node, id ulid.ULID, children []model.Node, err error) {
	if t.disposed {
		return
	}
	info, ok := t.nodes[n]
	if !ok || !info.hasReq || info.req != id {
		return
	}
	info.hasReq = false
	if info.state != StateTransitioning {
		t.log.Debug().Str("node", n.Label()).Msg("load result dropped, node was closed")
		return
	}
	if err != nil {
		info.state = StateClosed
		info.loadErr = err
		t.log.Warn().Err(err).Str("node", n.Label()).Msg("lazy load failed")
		t.render()
		return
	}
	if n.Disposed() {
		delete(t.nodes, n)
		return
	}
	n.SetChildren(model.NewList(children...))
	info.state = StateOpen
	t.notifyOpen(n, true)
	t.changed()
}

func (t *Tree) toggle(w Renderer) {
	n := w.Model()
	if n == nil || t.disposed {
		return
	}
	switch t.NodeState(n) {
	case StateOpen, StateTransitioning:
		_ = t.CloseNode(n)
	default:
		_ = t.OpenNode(n)
	}
}

// changed persists the open set and rebuilds.
func (t *Tree) changed() {
	t.saveState()
	t.rebuild()
}

func (t *Tree) check(op string, n model.Node) error {
	if t.disposed || n == nil || n.Disposed() {
		return &BindError{Op: op, Row: t.lookup.IndexOf(n), Err: ErrInvalidModelState}
	}
	return nil
}

func (t *Tree) info(n model.Node) *nodeInfo {
	info, ok := t.nodes[n]
	if !ok {
		info = &nodeInfo{state: StateClosed}
		t.nodes[n] = info
	}
	return info
}

// NodeState returns the tracked state of n.
func (t *Tree) NodeState(n model.Node) NodeState {
	if info, ok := t.nodes[n]; ok {
		return info.state
	}
	return StateUnknown
}

// IsNodeOpen reports whether n is open.
func (t *Tree) IsNodeOpen(n model.Node) bool {
	return t.NodeState(n) == StateOpen
}

// LoadError returns the error of the last failed lazy load of n.
func (t *Tree) LoadError(n model.Node) error {
	if info, ok := t.nodes[n]; ok {
		return info.loadErr
	}
	return nil
}

// OnOpenChange registers fn for every open/close of a node.
func (t *Tree) OnOpenChange(fn func(n model.Node, open bool)) model.Subscription {
	return t.openListeners.Add(fn)
}

func (t *Tree) notifyOpen(n model.Node, open bool) {
	for _, fn := range t.openListeners.Snapshot() {
		fn(n, open)
	}
}

// isOpen is the open predicate handed to Flatten.
func (t *Tree) isOpen(n model.Node) bool {
	return t.NodeState(n) == StateOpen
}

func (t *Tree) openable(n model.Node) bool {
	if model.IsLeaf(n) {
		return false
	}
	if l := n.Children(); l != nil {
		return l.Len() > 0
	}
	return t.loader != nil
}

// pathTo returns the ancestors of n from the root down, following loaded
// children only. It returns nil when n is not reachable.
func (t *Tree) pathTo(n model.Node) []model.Node {
	if t.root == nil {
		return nil
	}
	var path []model.Node
	seen := make(map[model.Node]bool)
	var walk func(cur model.Node) bool
	walk = func(cur model.Node) bool {
		if cur == n {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		l := cur.Children()
		for i := 0; i < l.Len(); i++ {
			path = append(path, cur)
			if walk(l.At(i)) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if !walk(t.root) {
		return nil
	}
	return path
}

// invalidate marks the lookup table stale and schedules one refresh. Any
// number of model changes before the refresh runs cost a single rebuild.
func (t *Tree) invalidate() {
	if t.disposed {
		return
	}
	t.dirty = true
	if t.scheduled {
		return
	}
	t.scheduled = true
	t.sched.Post(func() {
		t.scheduled = false
		t.refreshIfDirty()
	})
}

func (t *Tree) refreshIfDirty() {
	if t.dirty && !t.disposed {
		t.rebuild()
	}
}

// nodeDisposed runs after the watcher detached a disposed node.
func (t *Tree) nodeDisposed(n model.Node) {
	if n == t.root {
		t.Dispose()
		return
	}
	if info, ok := t.nodes[n]; ok {
		if info.hasReq {
			t.fetch.forget(info.req)
		}
		delete(t.nodes, n)
	}
	t.invalidate()
}

// rebuild recomputes the lookup table, moves listeners to the new visible
// set and rebinds the viewport, all in one synchronous pass.
func (t *Tree) rebuild() {
	if t.disposed {
		return
	}
	if t.rendering {
		// A change-open listener changed the open set while rows were
		// being bound; refresh once the current pass is done.
		t.invalidate()
		return
	}
	const maxPasses = 8
	for pass := 0; pass < maxPasses; pass++ {
		t.dirty = false
		lt, err := t.flatten()
		if err != nil {
			t.log.Warn().Err(err).Msg("lookup table rebuild gave up, keeping previous table")
			t.invalidate()
			return
		}
		if pass < maxPasses-1 && t.applyRestored(lt) {
			t.dirty = true
			continue
		}
		t.lookup = lt
		t.builds++
		t.prune()
		visible := lt.rows
		if t.hideRoot && t.root != nil {
			visible = append(lt.Rows(), t.root)
		}
		t.watch.sync(visible)
		t.render()
		if !t.dirty {
			return
		}
	}
}

func (t *Tree) flatten() (*LookupTable, error) {
	var err error
	for attempt := 0; attempt < defaultRebuildAttempts; attempt++ {
		var lt *LookupTable
		lt, err = Flatten(t.root, t.isOpen, t.hideRoot)
		if err == nil {
			return lt, nil
		}
		t.races++
		t.log.Debug().Err(err).Int("attempt", attempt+1).Msg("restarting traversal")
	}
	return nil, err
}

// prune forgets closed nodes that are no longer visible.
func (t *Tree) prune() {
	for n, info := range t.nodes {
		if info.state != StateClosed || info.hasReq || info.loadErr != nil || n == t.root {
			continue
		}
		if t.lookup.IndexOf(n) < 0 {
			delete(t.nodes, n)
		}
	}
}

// render binds the viewport rows to the pool. Vacated slots are unbound
// before any slot is bound, so a widget never reports a node it no longer
// renders.
func (t *Tree) render() {
	if t.disposed {
		return
	}
	t.rendering = true
	defer func() { t.rendering = false }()

	t.clampStart()
	size := t.pool.Size()
	for slot := 0; slot < size; slot++ {
		want := t.lookup.At(t.start + slot)
		if cur := t.pool.Widget(slot).Model(); cur != nil && cur != want {
			_ = t.pool.Unbind(slot)
		}
	}
	for slot := 0; slot < size; slot++ {
		row := t.start + slot
		want := t.lookup.At(row)
		if want == nil {
			continue
		}
		if err := t.pool.Bind(slot, want, t.rowState(row)); err != nil {
			t.log.Warn().Err(err).Int("row", row).Str("node", want.Label()).Msg("bind failed, row left blank")
		}
	}
}

// rowState derives the rendered state of row from the lookup table.
func (t *Tree) rowState(row int) RowState {
	n := t.lookup.At(row)
	st := RowState{Row: row, Depth: t.lookup.Depth(row)}
	if n == nil {
		return st
	}
	st.Label = t.label(n)
	st.Openable = t.openable(n)
	if info, ok := t.nodes[n]; ok {
		st.Open = info.state == StateOpen
		st.Loading = info.state == StateTransitioning
		st.LoadErr = info.loadErr
	}
	return st
}

func (t *Tree) clampStart() {
	size, n := t.pool.Size(), t.lookup.Len()
	if n <= size {
		t.start = 0
		return
	}
	t.start = max(0, min(t.start, n-size))
}

// LookupTable returns the current lookup table, applying any pending
// model change first.
func (t *Tree) LookupTable() *LookupTable {
	t.refreshIfDirty()
	return t.lookup
}

// Viewport returns the row range [start, end) mapped to widgets.
func (t *Tree) Viewport() (start, end int) {
	t.refreshIfDirty()
	return t.start, min(t.start+t.pool.Size(), t.lookup.Len())
}

// SetStart scrolls so that row is the first rendered row, clamped to the
// table.
func (t *Tree) SetStart(row int) {
	t.refreshIfDirty()
	t.start = row
	t.render()
}

// ScrollTo scrolls the minimum amount that makes row rendered.
func (t *Tree) ScrollTo(row int) {
	t.refreshIfDirty()
	size := t.pool.Size()
	switch {
	case row < t.start:
		t.start = row
	case row >= t.start+size:
		t.start = row - size + 1
	default:
		return
	}
	t.render()
}

// RenderedWidget returns the widget rendering row, or nil when the row is
// outside the viewport.
func (t *Tree) RenderedWidget(row int) Renderer {
	t.refreshIfDirty()
	if row < t.start || row >= t.start+t.pool.Size() || row >= t.lookup.Len() {
		return nil
	}
	w := t.pool.Widget(row - t.start)
	if w.Model() == nil {
		return nil
	}
	return w
}

// WidgetFor returns the widget rendering n, or nil.
func (t *Tree) WidgetFor(n model.Node) Renderer {
	return t.RenderedWidget(t.LookupTable().IndexOf(n))
}

// RowState returns the rendered state of row.
func (t *Tree) RowState(row int) RowState {
	t.refreshIfDirty()
	return t.rowState(row)
}

// PoolSize returns the number of row widgets.
func (t *Tree) PoolSize() int { return t.pool.Size() }

// Widget returns the widget in slot.
func (t *Tree) Widget(slot int) Renderer { return t.pool.Widget(slot) }

// Stats returns the current counters.
func (t *Tree) Stats() Stats {
	return Stats{
		Rebuilds:        t.builds,
		Binds:           t.pool.binds,
		Unbinds:         t.pool.unbinds,
		Attached:        t.watch.attached,
		Detached:        t.watch.detached,
		Loads:           int(t.fetch.loads.Load()),
		Pending:         t.fetch.inFlight(),
		StructuralRaces: t.races,
	}
}

// Flush drains the tree's private queue, if it owns one, and applies any
// pending refresh. Use it to reach a quiescent point.
func (t *Tree) Flush() {
	if t.queue != nil {
		t.queue.Flush()
	}
	t.refreshIfDirty()
}

// Wait blocks until every lazy load started so far has posted its result.
// Follow it with Flush (or drain the scheduler) to apply the results.
func (t *Tree) Wait() {
	t.fetch.wait()
}

// Dispose releases the listeners of every watched node, then unbinds every
// widget, then cancels in-flight loads. Disposing twice is a no-op.
func (t *Tree) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.watch.releaseAll()
	t.pool.UnbindAll()
	t.fetch.close()
	t.nodes = make(map[model.Node]*nodeInfo)
	t.log.Debug().Msg("tree disposed")
}

// Disposed reports whether Dispose has run.
func (t *Tree) Disposed() bool { return t.disposed }
