package tree

import (
	"github.com/vanderheijden86/vtree/pkg/model"
)

// Pool is a fixed set of reusable row widgets. Slot i renders viewport row
// start+i. A slot is always unbound before it is bound to a different node.
type Pool struct {
	items []Renderer

	binds   int
	unbinds int
}

// NewPool creates size widgets with factory.
func NewPool(size int, factory func() Renderer) *Pool {
	if size < 1 {
		size = 1
	}
	if factory == nil {
		factory = func() Renderer { return NewRowItem() }
	}
	p := &Pool{items: make([]Renderer, size)}
	for i := range p.items {
		p.items[i] = factory()
	}
	return p
}

// Size returns the number of slots.
func (p *Pool) Size() int { return len(p.items) }

// Widget returns the widget in slot, or nil when slot is out of range.
func (p *Pool) Widget(slot int) Renderer {
	if slot < 0 || slot >= len(p.items) {
		return nil
	}
	return p.items[slot]
}

// Bind points slot at n and renders st. A slot bound to a different node is
// unbound first, so observers never see the new node and the old state mixed.
func (p *Pool) Bind(slot int, n model.Node, st RowState) error {
	if slot < 0 || slot >= len(p.items) {
		return &BindError{Op: "bind", Row: st.Row, Err: ErrIndexOutOfRange}
	}
	if n == nil || n.Disposed() {
		return &BindError{Op: "bind", Row: st.Row, Err: ErrInvalidModelState}
	}
	w := p.items[slot]
	if cur := w.Model(); cur != n {
		if cur != nil {
			p.unbind(w)
		}
		w.SetModel(n)
		p.binds++
	}
	w.Update(st)
	return nil
}

// Unbind clears slot; its widget reports a nil model afterwards.
func (p *Pool) Unbind(slot int) error {
	if slot < 0 || slot >= len(p.items) {
		return &BindError{Op: "unbind", Row: slot, Err: ErrIndexOutOfRange}
	}
	if w := p.items[slot]; w.Model() != nil {
		p.unbind(w)
	}
	return nil
}

// UnbindAll clears every slot.
func (p *Pool) UnbindAll() {
	for _, w := range p.items {
		if w.Model() != nil {
			p.unbind(w)
		}
	}
}

// SlotOf returns the slot currently bound to n, or -1.
func (p *Pool) SlotOf(n model.Node) int {
	if n == nil {
		return -1
	}
	for i, w := range p.items {
		if w.Model() == n {
			return i
		}
	}
	return -1
}

func (p *Pool) unbind(w Renderer) {
	w.SetModel(nil)
	p.unbinds++
}
