package tree

import (
	"github.com/vanderheijden86/vtree/pkg/model"
)

// RowState is everything a renderer needs to draw one row.
type RowState struct {
	Row      int
	Label    string
	Depth    int
	Openable bool
	Open     bool
	Loading  bool  // A lazy load for the node is in flight
	LoadErr  error // Last lazy load failed; the row shows a placeholder
}

// Renderer is a reusable row widget. The pool owns the model reference:
// external code reads Model but only the pool calls SetModel and Update.
type Renderer interface {
	// Model returns the bound node, or nil when the widget is unbound.
	Model() model.Node
	SetModel(n model.Node)
	// Update redraws the widget from st. When the bound model did not
	// change and st.Open differs from the current state, change-open
	// listeners fire while the widget is still bound to that model.
	Update(st RowState)
	State() RowState

	IsOpenable() bool
	IsOpen() bool
	OnChangeOpen(fn func(open bool)) model.Subscription

	// OnToggle fires when the user toggles the open affordance. The
	// controller consumes it to open or close the bound node.
	OnToggle(fn func()) model.Subscription
	Toggle()
}

// RowItem is the default Renderer.
type RowItem struct {
	node  model.Node
	st    RowState
	fresh bool // Bound since the last Update

	changeOpen model.Listeners[func(bool)]
	toggle     model.Listeners[func()]
}

// NewRowItem returns an unbound row widget.
func NewRowItem() *RowItem {
	return &RowItem{st: RowState{Row: -1}}
}

func (r *RowItem) Model() model.Node { return r.node }

// SetModel rebinds the widget. Binding nil clears the rendered state.
func (r *RowItem) SetModel(n model.Node) {
	r.node = n
	r.fresh = true
	if n == nil {
		r.st = RowState{Row: -1}
	}
}

func (r *RowItem) Update(st RowState) {
	prev := r.st.Open
	fresh := r.fresh
	r.st = st
	r.fresh = false
	if fresh || r.node == nil || prev == st.Open {
		return
	}
	for _, fn := range r.changeOpen.Snapshot() {
		fn(st.Open)
	}
}

func (r *RowItem) State() RowState { return r.st }

func (r *RowItem) IsOpenable() bool { return r.node != nil && r.st.Openable }

func (r *RowItem) IsOpen() bool { return r.node != nil && r.st.Open }

func (r *RowItem) OnChangeOpen(fn func(open bool)) model.Subscription {
	return r.changeOpen.Add(fn)
}

func (r *RowItem) OnToggle(fn func()) model.Subscription {
	return r.toggle.Add(fn)
}

// Toggle simulates the user clicking the open/close affordance. Unbound or
// non-openable widgets ignore it.
func (r *RowItem) Toggle() {
	if !r.IsOpenable() {
		return
	}
	for _, fn := range r.toggle.Snapshot() {
		fn()
	}
}

// ChangeOpenListenerCount returns the number of change-open listeners.
func (r *RowItem) ChangeOpenListenerCount() int { return r.changeOpen.Len() }
