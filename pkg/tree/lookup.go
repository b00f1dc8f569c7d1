package tree

import (
	"github.com/vanderheijden86/vtree/pkg/model"
)

// LookupTable is the flattened, order-stable index of visible nodes. Row i
// holds the i-th node of a depth-first pre-order walk that descends only into
// open nodes with loaded children.
type LookupTable struct {
	rows    []model.Node
	depths  []int
	parents []model.Node
	index   map[model.Node]int
}

// Len returns the number of visible rows.
func (lt *LookupTable) Len() int {
	if lt == nil {
		return 0
	}
	return len(lt.rows)
}

// At returns the node at row, or nil when row is out of range.
func (lt *LookupTable) At(row int) model.Node {
	if lt == nil || row < 0 || row >= len(lt.rows) {
		return nil
	}
	return lt.rows[row]
}

// IndexOf returns the row of n, or -1 when n is not visible.
func (lt *LookupTable) IndexOf(n model.Node) int {
	if lt == nil || n == nil {
		return -1
	}
	if i, ok := lt.index[n]; ok {
		return i
	}
	return -1
}

// Depth returns the nesting level of row (0 for the top level).
func (lt *LookupTable) Depth(row int) int {
	if lt == nil || row < 0 || row >= len(lt.depths) {
		return 0
	}
	return lt.depths[row]
}

// Parent returns the parent of the node at row, or nil for the top level.
func (lt *LookupTable) Parent(row int) model.Node {
	if lt == nil || row < 0 || row >= len(lt.parents) {
		return nil
	}
	return lt.parents[row]
}

// Rows returns a copy of the visible nodes in row order.
func (lt *LookupTable) Rows() []model.Node {
	if lt == nil {
		return nil
	}
	out := make([]model.Node, len(lt.rows))
	copy(out, lt.rows)
	return out
}

// Labels returns the label of every row, mostly useful in tests and exports.
func (lt *LookupTable) Labels() []string {
	if lt == nil {
		return nil
	}
	out := make([]string, len(lt.rows))
	for i, n := range lt.rows {
		out[i] = n.Label()
	}
	return out
}

// Flatten walks root and returns the lookup table for the given open set.
// It is pure: the same model shape and open set give the same table. When a
// children list changes during the walk it returns ErrStructuralRace and no
// table; callers restart the walk.
func Flatten(root model.Node, isOpen func(model.Node) bool, hideRoot bool) (*LookupTable, error) {
	lt := &LookupTable{index: make(map[model.Node]int)}
	if root == nil || root.Disposed() {
		return lt, nil
	}

	f := flattener{lt: lt, isOpen: isOpen, onPath: make(map[model.Node]bool)}
	var err error
	if hideRoot {
		f.onPath[root] = true
		err = f.children(root, 0)
	} else {
		err = f.visit(root, nil, 0)
	}
	if err != nil {
		return nil, err
	}
	for _, s := range f.seen {
		if s.list.Version() != s.version {
			return nil, ErrStructuralRace
		}
	}
	return lt, nil
}

type listVersion struct {
	list    *model.List
	version uint64
}

type flattener struct {
	lt     *LookupTable
	isOpen func(model.Node) bool
	onPath map[model.Node]bool // Cycle guard
	seen   []listVersion
}

func (f *flattener) visit(n, parent model.Node, depth int) error {
	if n == nil || n.Disposed() || f.onPath[n] {
		return nil
	}
	if _, dup := f.lt.index[n]; !dup {
		f.lt.index[n] = len(f.lt.rows)
	}
	f.lt.rows = append(f.lt.rows, n)
	f.lt.depths = append(f.lt.depths, depth)
	f.lt.parents = append(f.lt.parents, parent)

	if !f.isOpen(n) {
		return nil
	}
	f.onPath[n] = true
	defer delete(f.onPath, n)
	return f.children(n, depth+1)
}

func (f *flattener) children(n model.Node, depth int) error {
	list := n.Children()
	if list == nil {
		return nil
	}
	version := list.Version()
	f.seen = append(f.seen, listVersion{list: list, version: version})
	for i := 0; i < list.Len(); i++ {
		var parent model.Node = n
		if depth == 0 {
			parent = nil
		}
		if err := f.visit(list.At(i), parent, depth); err != nil {
			return err
		}
		if list.Version() != version {
			return ErrStructuralRace
		}
	}
	return nil
}
