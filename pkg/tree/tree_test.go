package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vanderheijden86/vtree/pkg/model"
)

// fixture is Root with Child0 and Child1 loaded (empty) and Child2 deferred.
type fixture struct {
	root, c0, c1, c2 *model.Item
}

func newFixture() fixture {
	f := fixture{
		c0: model.NewNode("Child0"),
		c1: model.NewNode("Child1"),
		c2: model.NewDeferred("Child2"),
	}
	f.root = model.NewNode("Root", f.c0, f.c1, f.c2)
	return f
}

// leafLoader resolves any node to three leaves named after it.
func leafLoader() LoaderFunc {
	return func(_ context.Context, n model.Node) ([]model.Node, error) {
		out := make([]model.Node, 3)
		for i := range out {
			out[i] = model.NewLeaf(fmt.Sprintf("%s/%d", n.Label(), i))
		}
		return out, nil
	}
}

func labelsEqual(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

// checkBinding asserts that every slot renders exactly its viewport row.
func checkBinding(t *testing.T, tr *Tree) {
	t.Helper()
	lt := tr.LookupTable()
	start, _ := tr.Viewport()
	for slot := 0; slot < tr.PoolSize(); slot++ {
		want := lt.At(start + slot)
		if got := tr.Widget(slot).Model(); got != want {
			t.Errorf("slot %d bound to %v, want %v", slot, got, want)
		}
	}
}

func TestSetModelOpensRoot(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "Child2")
	if !tr.IsNodeOpen(f.root) {
		t.Error("root should be open after SetModel")
	}
	if d := tr.LookupTable().Depth(1); d != 1 {
		t.Errorf("depth of Child0 = %d, want 1", d)
	}
	checkBinding(t, tr)
}

func TestLazyLoadScenario(t *testing.T) {
	f := newFixture()
	var events []string
	tr := New(
		WithPoolSize(10),
		WithLoader(leafLoader()),
		WithConfigureItem(func(w Renderer) {
			w.OnChangeOpen(func(open bool) {
				events = append(events, fmt.Sprintf("%s:%v", w.Model().Label(), open))
			})
		}),
	)
	tr.SetModel(f.root)

	if err := tr.OpenNode(f.c2); err != nil {
		t.Fatalf("OpenNode: %v", err)
	}
	if st := tr.NodeState(f.c2); st != StateTransitioning {
		t.Fatalf("state = %v, want transitioning", st)
	}
	if !tr.RowState(3).Loading {
		t.Error("Child2 row should show loading")
	}

	tr.Wait()
	tr.Flush()

	lt := tr.LookupTable()
	if lt.Len() != 7 {
		t.Fatalf("lookup table length = %d, want 7", lt.Len())
	}
	labelsEqual(t, lt.Labels(), "Root", "Child0", "Child1", "Child2", "Child2/0", "Child2/1", "Child2/2")
	for row := 4; row <= 6; row++ {
		if p := lt.Parent(row); p != f.c2 {
			t.Errorf("parent of row %d = %v, want Child2", row, p)
		}
	}
	if w := tr.WidgetFor(f.c2); w == nil || !w.IsOpen() {
		t.Error("Child2 widget should render open")
	}
	labelsEqual(t, events, "Child2:true")
	checkBinding(t, tr)
}

func TestChangeOpenFiresOnBoundModel(t *testing.T) {
	f := newFixture()
	f.c0.Children().Push(model.NewLeaf("Child0a"), model.NewLeaf("Child0b"))

	var tr *Tree
	var events []string
	tr = New(
		WithPoolSize(4),
		WithLoader(leafLoader()),
		WithConfigureItem(func(w Renderer) {
			w.OnChangeOpen(func(open bool) {
				n := w.Model()
				if n == nil {
					t.Fatal("change-open fired on an unbound widget")
				}
				if tr.IsNodeOpen(n) != open {
					t.Errorf("change-open(%v) fired while bound to %s whose state is %v", open, n.Label(), tr.NodeState(n))
				}
				events = append(events, fmt.Sprintf("%s:%v", n.Label(), open))
			})
		}),
	)
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()
	checkBinding(t, tr)

	// Child0 opens above Child2: slot 3 is rebound to Child0b, which must
	// not inherit Child2's open state.
	_ = tr.OpenNode(f.c0)
	checkBinding(t, tr)
	_ = tr.CloseNode(f.c0)
	checkBinding(t, tr)

	labelsEqual(t, events, "Child2:true", "Child0:true", "Child0:false")
}

func TestOpenCloseIdempotent(t *testing.T) {
	f := newFixture()
	f.c0.Children().Push(model.NewLeaf("a"))
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c0)
	before := tr.Stats()
	_ = tr.OpenNode(f.c0)
	tr.Flush()
	after := tr.Stats()
	if after.Rebuilds != before.Rebuilds || after.Binds != before.Binds {
		t.Errorf("second open changed stats: %+v -> %+v", before, after)
	}

	_ = tr.CloseNode(f.c0)
	before = tr.Stats()
	_ = tr.CloseNode(f.c0)
	tr.Flush()
	after = tr.Stats()
	if after.Rebuilds != before.Rebuilds || after.Unbinds != before.Unbinds {
		t.Errorf("second close changed stats: %+v -> %+v", before, after)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "Child2")
}

func TestModelChangesCoalesce(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	rebuilds := tr.Stats().Rebuilds
	f.root.Children().Push(model.NewLeaf("x"))
	f.root.Children().Push(model.NewLeaf("y"))
	f.root.Children().RemoveAt(0)
	tr.Flush()

	if got := tr.Stats().Rebuilds - rebuilds; got != 1 {
		t.Errorf("rebuilds after three mutations = %d, want 1", got)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child1", "Child2", "x", "y")
	checkBinding(t, tr)
}

func TestReadAppliesPendingChange(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	f.c1.SetChildren(model.NewList(model.NewLeaf("z")))
	_ = tr.OpenNode(f.c1)
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "z", "Child2")
}

func TestReopenWhileLoadingLoadsOnce(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, n model.Node) ([]model.Node, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []model.Node{model.NewLeaf("late")}, nil
	})
	tr := New(WithPoolSize(10), WithLoader(loader))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	_ = tr.CloseNode(f.c2)
	_ = tr.OpenNode(f.c2)
	if st := tr.NodeState(f.c2); st != StateTransitioning {
		t.Fatalf("state after reopen = %v, want transitioning", st)
	}
	close(release)
	tr.Wait()
	tr.Flush()

	if n := tr.Stats().Loads; n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "Child2", "late")
}

func TestCloseWhileLoadingDropsResult(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	loader := LoaderFunc(func(_ context.Context, n model.Node) ([]model.Node, error) {
		<-release
		return []model.Node{model.NewLeaf("late")}, nil
	})
	tr := New(WithPoolSize(10), WithLoader(loader))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	_ = tr.CloseNode(f.c2)
	close(release)
	tr.Wait()
	tr.Flush()

	if f.c2.Children() != nil {
		t.Error("a dropped result must not populate the node")
	}
	if st := tr.NodeState(f.c2); st != StateClosed {
		t.Errorf("state = %v, want closed", st)
	}
	if n := tr.Stats().Pending; n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "Child2")

	// A later open starts a fresh load.
	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()
	if n := tr.Stats().Loads; n != 2 {
		t.Errorf("loader calls = %d, want 2", n)
	}
	if !tr.IsNodeOpen(f.c2) {
		t.Error("Child2 should be open")
	}
}

func TestLoadFailureShowsOnRow(t *testing.T) {
	boom := errors.New("disk on fire")
	f := newFixture()
	tr := New(WithPoolSize(10), WithLoader(LoaderFunc(func(context.Context, model.Node) ([]model.Node, error) {
		return nil, boom
	})))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()

	err := tr.LoadError(f.c2)
	if !errors.Is(err, boom) {
		t.Fatalf("LoadError = %v, want wrapping %v", err, boom)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Node != f.c2 {
		t.Errorf("want *LoadError for Child2, got %T", err)
	}
	st := tr.RowState(3)
	if st.LoadErr == nil || st.Open || st.Loading {
		t.Errorf("row state = %+v, want closed with error", st)
	}
	if tr.LookupTable().Len() != 4 {
		t.Errorf("failed load must not add rows")
	}
}

func TestLoaderPanicIsRecovered(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10), WithLoader(LoaderFunc(func(context.Context, model.Node) ([]model.Node, error) {
		panic("loader bug")
	})))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()

	err := tr.LoadError(f.c2)
	if err == nil || !strings.Contains(err.Error(), "loader bug") {
		t.Errorf("LoadError = %v, want recovered panic", err)
	}
}

func TestOpenWithoutLoaderRecordsIntent(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	if !tr.IsNodeOpen(f.c2) {
		t.Fatal("open without loader should still mark the node open")
	}
	f.c2.SetChildren(model.NewList(model.NewLeaf("pushed")))
	tr.Flush()
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child1", "Child2", "pushed")
}

func TestDeferredChildrenGetListeners(t *testing.T) {
	deferred := model.NewDeferred("Deferred")
	root := model.NewNode("Root", deferred)
	tr := New(WithPoolSize(5))
	tr.SetModel(root)

	if tr.RowState(1).Openable {
		t.Fatal("deferred node without loader should not be openable")
	}
	if deferred.ChildrenListenerCount() != 1 {
		t.Fatalf("children listeners = %d, want 1", deferred.ChildrenListenerCount())
	}

	deferred.SetChildren(model.NewList(model.NewLeaf("Leaf")))
	tr.Flush()
	if !tr.RowState(1).Openable {
		t.Error("node should become openable once children arrive")
	}
	if n := deferred.Children().ListenerCount(); n != 1 {
		t.Errorf("list listeners on new children = %d, want 1", n)
	}

	list := deferred.Children()
	root.Dispose()
	if !tr.Disposed() {
		t.Error("disposing the root should dispose the tree")
	}
	if deferred.ChildrenListenerCount() != 0 || deferred.DisposeListenerCount() != 0 {
		t.Error("listeners left on disposed child")
	}
	if list.ListenerCount() != 0 {
		t.Error("listeners left on disposed child list")
	}
	if root.ChildrenListenerCount() != 0 || root.DisposeListenerCount() != 0 {
		t.Error("listeners left on disposed root")
	}
	tr.Flush()
}

func TestListenerSymmetry(t *testing.T) {
	f := newFixture()
	f.c0.Children().Push(model.NewLeaf("a"), model.NewLeaf("b"))
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	if f.root.ChildrenListenerCount() != 1 || f.root.Children().ListenerCount() != 1 {
		t.Fatal("root should have exactly one children and one list listener")
	}
	_ = tr.OpenNode(f.c0)
	if f.c0.Children().ListenerCount() != 1 {
		t.Fatal("open Child0 should have one list listener")
	}

	_ = tr.CloseNode(f.root)
	labelsEqual(t, tr.LookupTable().Labels(), "Root")
	for _, n := range []*model.Item{f.c0, f.c1, f.c2} {
		if n.ChildrenListenerCount() != 0 || n.DisposeListenerCount() != 0 {
			t.Errorf("%s still has listeners after leaving the viewport", n.Label())
		}
	}

	_ = tr.OpenNode(f.root)
	tr.Dispose()
	tr.Dispose()
	st := tr.Stats()
	if st.Attached != st.Detached {
		t.Errorf("attached %d, detached %d", st.Attached, st.Detached)
	}
	for _, n := range []*model.Item{f.root, f.c0, f.c1, f.c2} {
		if n.ChildrenListenerCount() != 0 || n.DisposeListenerCount() != 0 {
			t.Errorf("%s still has listeners after Dispose", n.Label())
		}
	}
	if f.root.Children().ListenerCount() != 0 || f.c0.Children().ListenerCount() != 0 {
		t.Error("list listeners left after Dispose")
	}
	for slot := 0; slot < tr.PoolSize(); slot++ {
		if tr.Widget(slot).Model() != nil {
			t.Errorf("slot %d still bound after Dispose", slot)
		}
	}
}

func TestDisposeDuringLoad(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10), WithLoader(LoaderFunc(func(ctx context.Context, _ model.Node) ([]model.Node, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})))
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	tr.Dispose()
	tr.Wait()
	tr.Flush()
	if f.c2.Children() != nil {
		t.Error("load completing after Dispose must be dropped")
	}
}

func TestChildDisposedLeavesViewport(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	f.c1.Dispose()
	tr.Flush()
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "Child0", "Child2")
	checkBinding(t, tr)
}

func TestInvalidNodeErrors(t *testing.T) {
	f := newFixture()
	tr := New()
	tr.SetModel(f.root)

	if err := tr.OpenNode(nil); !errors.Is(err, ErrInvalidModelState) {
		t.Errorf("OpenNode(nil) = %v", err)
	}
	gone := model.NewNode("gone")
	gone.Dispose()
	if err := tr.CloseNode(gone); !errors.Is(err, ErrInvalidModelState) {
		t.Errorf("CloseNode(disposed) = %v", err)
	}
}

func TestScrollingSmallPool(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(3), WithLoader(leafLoader()))
	tr.SetModel(f.root)
	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()

	tr.SetStart(4)
	if start, end := tr.Viewport(); start != 4 || end != 7 {
		t.Errorf("viewport = [%d,%d), want [4,7)", start, end)
	}
	checkBinding(t, tr)
	if w := tr.RenderedWidget(5); w == nil || w.Model().Label() != "Child2/1" {
		t.Errorf("row 5 widget = %v", w)
	}

	tr.SetStart(100)
	if start, _ := tr.Viewport(); start != 4 {
		t.Errorf("start clamped to %d, want 4", start)
	}

	tr.ScrollTo(0)
	if start, _ := tr.Viewport(); start != 0 {
		t.Errorf("start = %d, want 0", start)
	}
	if tr.RenderedWidget(5) != nil {
		t.Error("row 5 should not be rendered at start 0")
	}
	checkBinding(t, tr)

	// Closing shrinks the table below the viewport; start snaps back.
	tr.SetStart(4)
	_ = tr.CloseNode(f.c2)
	if start, _ := tr.Viewport(); start != 1 {
		t.Errorf("start after close = %d, want 1", start)
	}
	checkBinding(t, tr)
}

func TestHideRoot(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10), WithHideRoot(true))
	tr.SetModel(f.root)

	lt := tr.LookupTable()
	labelsEqual(t, lt.Labels(), "Child0", "Child1", "Child2")
	if lt.Depth(0) != 0 || lt.Parent(0) != nil {
		t.Error("top level rows should have depth 0 and no parent")
	}

	_ = tr.CloseNode(f.root)
	if !tr.IsNodeOpen(f.root) {
		t.Error("hidden root must stay open")
	}

	f.root.Children().Push(model.NewLeaf("Child3"))
	tr.Flush()
	labelsEqual(t, tr.LookupTable().Labels(), "Child0", "Child1", "Child2", "Child3")
}

func TestToggleFromWidget(t *testing.T) {
	f := newFixture()
	f.c1.Children().Push(model.NewLeaf("x"))
	tr := New(WithPoolSize(10))
	tr.SetModel(f.root)

	w := tr.WidgetFor(f.c1)
	w.Toggle()
	if !tr.IsNodeOpen(f.c1) {
		t.Fatal("toggle should open Child1")
	}
	tr.WidgetFor(f.c1).Toggle()
	if tr.IsNodeOpen(f.c1) {
		t.Fatal("second toggle should close Child1")
	}

	// Child0 has no children: not openable, toggle ignored.
	tr.WidgetFor(f.c0).Toggle()
	if tr.IsNodeOpen(f.c0) {
		t.Error("empty node should ignore toggle")
	}
}

func TestOpenNodeAndParents(t *testing.T) {
	deep := model.NewNode("deep", model.NewLeaf("bottom"))
	mid := model.NewNode("mid", deep)
	root := model.NewNode("root", mid, model.NewLeaf("side"))
	tr := New(WithPoolSize(10))
	tr.SetModel(root)
	_ = tr.CloseNode(root)

	if err := tr.OpenNodeAndParents(deep); err != nil {
		t.Fatal(err)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "root", "mid", "deep", "bottom", "side")
}

func TestOpenAllAndCloseAll(t *testing.T) {
	root := model.NewNode("root",
		model.NewNode("a", model.NewNode("a1", model.NewLeaf("a1x"))),
		model.NewNode("b", model.NewLeaf("b1")),
		model.NewLeaf("c"),
	)
	tr := New(WithPoolSize(20))
	tr.SetModel(root)

	if n := tr.OpenAll(2); n != 2 {
		t.Errorf("OpenAll(2) opened %d, want 2", n)
	}
	labelsEqual(t, tr.LookupTable().Labels(), "root", "a", "a1", "b", "b1", "c")

	tr.OpenAll(-1)
	labelsEqual(t, tr.LookupTable().Labels(), "root", "a", "a1", "a1x", "b", "b1", "c")

	tr.CloseAll()
	labelsEqual(t, tr.LookupTable().Labels(), "root", "a", "b", "c")
}

func TestOnOpenChange(t *testing.T) {
	f := newFixture()
	f.c0.Children().Push(model.NewLeaf("x"))
	tr := New(WithPoolSize(10))
	var got []string
	sub := tr.OnOpenChange(func(n model.Node, open bool) {
		got = append(got, fmt.Sprintf("%s:%v", n.Label(), open))
	})
	tr.SetModel(f.root)
	_ = tr.OpenNode(f.c0)
	_ = tr.CloseNode(f.c0)
	sub.Release()
	_ = tr.OpenNode(f.c0)

	labelsEqual(t, got, "Root:true", "Child0:true", "Child0:false")
}

func TestWithLabel(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10), WithLabel(func(n model.Node) string {
		return strings.ToUpper(n.Label())
	}))
	tr.SetModel(f.root)
	if got := tr.RowState(1).Label; got != "CHILD0" {
		t.Errorf("label = %q, want CHILD0", got)
	}
}

func TestSetModelReplacesModel(t *testing.T) {
	first := newFixture()
	second := newFixture()
	tr := New(WithPoolSize(10))
	tr.SetModel(first.root)
	tr.SetModel(second.root)

	if first.root.ChildrenListenerCount() != 0 || first.c0.DisposeListenerCount() != 0 {
		t.Error("previous model still has listeners")
	}
	if tr.Model() != second.root {
		t.Error("Model() should return the new root")
	}
	checkBinding(t, tr)

	tr.SetModel(nil)
	if tr.LookupTable().Len() != 0 {
		t.Error("nil model should give an empty table")
	}
}

func TestGetModelAfterCollapseExpand(t *testing.T) {
	f := newFixture()
	var events []string
	tr := New(
		WithPoolSize(10),
		WithLoader(leafLoader()),
		WithConfigureItem(func(w Renderer) {
			w.OnChangeOpen(func(open bool) {
				events = append(events, fmt.Sprintf("%s:%v", w.Model().Label(), open))
			})
		}),
	)
	tr.SetModel(f.root)

	_ = tr.OpenNode(f.c2)
	tr.Wait()
	tr.Flush()
	if n := tr.LookupTable().Len(); n != 7 {
		t.Fatalf("after open: %d rows, want 7", n)
	}
	_ = tr.CloseNode(f.c2)
	if n := tr.LookupTable().Len(); n != 4 {
		t.Fatalf("after close: %d rows, want 4", n)
	}
	_ = tr.OpenNode(f.c2)
	if n := tr.LookupTable().Len(); n != 7 {
		t.Fatalf("after reopen: %d rows, want 7", n)
	}

	w := tr.RenderedWidget(3)
	if w == nil || w.Model() != model.Node(f.c2) {
		t.Fatalf("row 3 bound to %v, want Child2", w)
	}
	var seen []model.Node
	sub := w.OnChangeOpen(func(open bool) {
		if open {
			t.Error("closing Child2 reported open")
		}
		seen = append(seen, w.Model())
	})
	defer sub.Release()

	_ = tr.CloseNode(f.c2)
	if len(seen) != 1 || seen[0] != model.Node(f.c2) {
		t.Errorf("change-open saw %v, want [Child2]", seen)
	}
	labelsEqual(t, events, "Child2:true", "Child2:false", "Child2:true", "Child2:false")
	if n := tr.Stats().Loads; n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
	checkBinding(t, tr)
}

func TestSameLabelSiblingsLoadSeparately(t *testing.T) {
	a, b := model.NewDeferred("src"), model.NewDeferred("src")
	root := model.NewNode("Root", a, b)
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, n model.Node) ([]model.Node, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		name := "from-a"
		if n == model.Node(b) {
			name = "from-b"
		}
		return []model.Node{model.NewLeaf(name)}, nil
	})
	tr := New(WithPoolSize(10), WithLoader(loader))
	tr.SetModel(root)

	_ = tr.OpenNode(a)
	_ = tr.OpenNode(b)
	close(release)
	tr.Wait()
	tr.Flush()

	if n := tr.Stats().Loads; n != 2 {
		t.Errorf("loader calls = %d, want 2", n)
	}
	if a.Children() == nil || b.Children() == nil {
		t.Fatal("both siblings should be loaded")
	}
	if a.Children().At(0) == b.Children().At(0) {
		t.Error("siblings share a child instance")
	}
	labelsEqual(t, tr.LookupTable().Labels(), "Root", "src", "from-a", "src", "from-b")
	for row, parent := range map[int]model.Node{2: a, 4: b} {
		if p := tr.LookupTable().Parent(row); p != parent {
			t.Errorf("parent of row %d = %p, want %p", row, p, parent)
		}
	}
	checkBinding(t, tr)
}

func TestDisposedTreeRejectsOpenClose(t *testing.T) {
	f := newFixture()
	tr := New(WithPoolSize(10), WithLoader(leafLoader()))
	tr.SetModel(f.root)
	tr.Dispose()

	if err := tr.OpenNode(f.c2); !errors.Is(err, ErrInvalidModelState) {
		t.Errorf("OpenNode after Dispose = %v", err)
	}
	if st := tr.NodeState(f.c2); st == StateTransitioning {
		t.Error("node left transitioning on a disposed tree")
	}
	if err := tr.CloseNode(f.c0); !errors.Is(err, ErrInvalidModelState) {
		t.Errorf("CloseNode after Dispose = %v", err)
	}
	if err := tr.OpenNodeAndParents(f.c2); !errors.Is(err, ErrInvalidModelState) {
		t.Errorf("OpenNodeAndParents after Dispose = %v", err)
	}
	if n := tr.Stats().Loads; n != 0 {
		t.Errorf("loader calls = %d, want 0", n)
	}
}
