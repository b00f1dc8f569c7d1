package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/vtree/pkg/model"
)

func TestPoolBindErrors(t *testing.T) {
	p := NewPool(2, nil)

	err := p.Bind(5, model.NewLeaf("x"), RowState{Row: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	var be *BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "bind", be.Op)
	assert.Equal(t, 5, be.Row)

	gone := model.NewLeaf("gone")
	gone.Dispose()
	assert.ErrorIs(t, p.Bind(0, gone, RowState{}), ErrInvalidModelState)
	assert.ErrorIs(t, p.Bind(0, nil, RowState{}), ErrInvalidModelState)
	assert.ErrorIs(t, p.Unbind(-1), ErrIndexOutOfRange)
	assert.Nil(t, p.Widget(2))
}

func TestPoolUnbindsBeforeRebind(t *testing.T) {
	var seen []model.Node
	p := NewPool(1, func() Renderer { return &recordingItem{RowItem: NewRowItem(), seen: &seen} })
	a, b := model.NewLeaf("a"), model.NewLeaf("b")

	require.NoError(t, p.Bind(0, a, RowState{Row: 0, Label: "a"}))
	require.NoError(t, p.Bind(0, a, RowState{Row: 0, Label: "a"}))
	require.NoError(t, p.Bind(0, b, RowState{Row: 0, Label: "b"}))

	assert.Equal(t, []model.Node{a, nil, b}, seen)
	assert.Equal(t, 2, p.binds)
	assert.Equal(t, 1, p.unbinds)
	assert.Equal(t, 0, p.SlotOf(b))
	assert.Equal(t, -1, p.SlotOf(a))

	p.UnbindAll()
	assert.Nil(t, p.Widget(0).Model())
	assert.Equal(t, RowState{Row: -1}, p.Widget(0).State())
}

// recordingItem records every SetModel call.
type recordingItem struct {
	*RowItem
	seen *[]model.Node
}

func (r *recordingItem) SetModel(n model.Node) {
	*r.seen = append(*r.seen, n)
	r.RowItem.SetModel(n)
}

func TestRowItemChangeOpen(t *testing.T) {
	n := model.NewNode("n", model.NewLeaf("x"))
	r := NewRowItem()
	var events []bool
	sub := r.OnChangeOpen(func(open bool) { events = append(events, open) })

	r.SetModel(n)
	r.Update(RowState{Openable: true, Open: true})
	assert.Empty(t, events, "first update after a bind is not a change")

	r.Update(RowState{Openable: true, Open: true})
	r.Update(RowState{Openable: true, Open: false})
	r.Update(RowState{Openable: true, Open: true})
	assert.Equal(t, []bool{false, true}, events)
	assert.True(t, r.IsOpen())
	assert.True(t, r.IsOpenable())

	sub.Release()
	sub.Release()
	assert.Equal(t, 0, r.ChangeOpenListenerCount())

	r.SetModel(nil)
	assert.False(t, r.IsOpen())
	assert.False(t, r.IsOpenable())
}

func TestRowItemToggleIgnoredWhenNotOpenable(t *testing.T) {
	r := NewRowItem()
	toggles := 0
	r.OnToggle(func() { toggles++ })

	r.Toggle()
	r.SetModel(model.NewLeaf("leaf"))
	r.Update(RowState{Openable: false})
	r.Toggle()
	assert.Equal(t, 0, toggles)

	r.Update(RowState{Openable: true})
	r.Toggle()
	assert.Equal(t, 1, toggles)
}
