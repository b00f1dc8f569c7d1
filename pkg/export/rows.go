// Package export writes the visible rows of a tree as Markdown, SVG or PNG.
package export

import (
	"github.com/vanderheijden86/vtree/pkg/tree"
)

// Row is one exported line.
type Row struct {
	Label    string
	Depth    int
	Openable bool
	Open     bool
	Failed   bool // The last lazy load of the node failed
}

// Summary holds outline counters.
type Summary struct {
	Rows     int
	Open     int
	MaxDepth int
}

// Summarize counts rows.
func Summarize(rows []Row) Summary {
	s := Summary{Rows: len(rows)}
	for _, r := range rows {
		if r.Open {
			s.Open++
		}
		s.MaxDepth = max(s.MaxDepth, r.Depth)
	}
	return s
}

// FromTree returns every row of the tree's lookup table, not just the
// viewport.
func FromTree(tr *tree.Tree) []Row {
	lt := tr.LookupTable()
	rows := make([]Row, lt.Len())
	for i := range rows {
		st := tr.RowState(i)
		rows[i] = Row{
			Label:    st.Label,
			Depth:    st.Depth,
			Openable: st.Openable,
			Open:     st.Open,
			Failed:   st.LoadErr != nil,
		}
	}
	return rows
}

// Expand opens nodes down to depth (negative for everything), waiting for
// lazy loads between passes. Nodes whose load failed are not retried. The
// tree must own its scheduler.
func Expand(tr *tree.Tree, depth int) {
	for {
		tr.Wait()
		tr.Flush()
		if tr.OpenAll(depth) == 0 && tr.Stats().Pending == 0 {
			return
		}
	}
}
