package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/vtree/pkg/model"
	"github.com/vanderheijden86/vtree/pkg/tree"
)

// TreeModel renders a tree controller in the terminal. Only the rows bound
// to the controller's widget pool are drawn; moving the cursor scrolls the
// pool over the lookup table.
type TreeModel struct {
	tree  *tree.Tree
	theme Theme

	cursor   int
	selected model.Node
	offset   int // First row on screen, inside the pool viewport
	width    int
	height   int
	level    int    // Depth opened by the last ExpandLevel
	loading  string // Glyph drawn for rows with a load in flight
}

// NewTreeModel returns a view over tr.
func NewTreeModel(tr *tree.Tree, theme Theme) TreeModel {
	t := TreeModel{tree: tr, theme: theme, loading: "…", level: 1}
	t.sync()
	return t
}

// SetSize updates the view dimensions. A height of zero renders the whole
// pool.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetLoadingGlyph sets what loading rows show in place of the indicator.
func (t *TreeModel) SetLoadingGlyph(s string) {
	t.loading = s
}

// Tree returns the controller.
func (t *TreeModel) Tree() *tree.Tree { return t.tree }

// Cursor returns the selected row.
func (t *TreeModel) Cursor() int { return t.cursor }

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int { return t.tree.LookupTable().Len() }

// SelectedNode returns the node under the cursor, or nil.
func (t *TreeModel) SelectedNode() model.Node {
	return t.tree.LookupTable().At(t.cursor)
}

// SelectNode opens the ancestors of n and moves the cursor onto it.
func (t *TreeModel) SelectNode(n model.Node) bool {
	if err := t.tree.OpenNodeAndParents(n); err != nil {
		return false
	}
	i := t.tree.LookupTable().IndexOf(n)
	if i < 0 {
		return false
	}
	t.setCursor(i)
	return true
}

// sync re-anchors the cursor on the selected node after the table changed.
// When that node is gone the cursor keeps its row, clamped to the table.
func (t *TreeModel) sync() {
	lt := t.tree.LookupTable()
	if i := lt.IndexOf(t.selected); i >= 0 {
		t.cursor = i
	} else {
		t.cursor = max(0, min(t.cursor, lt.Len()-1))
		t.selected = lt.At(t.cursor)
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) setCursor(row int) {
	lt := t.tree.LookupTable()
	t.cursor = max(0, min(row, lt.Len()-1))
	t.selected = lt.At(t.cursor)
	t.ensureCursorVisible()
}

// viewRows returns how many rows fit on screen.
func (t *TreeModel) viewRows() int {
	rows := t.tree.PoolSize()
	if t.height > 0 && t.height < rows {
		rows = t.height
	}
	return rows
}

// ensureCursorVisible scrolls so the cursor row is both bound to a widget
// and on screen. The screen may be shorter than the pool, so the first
// screen row is kept separately inside the pool viewport.
func (t *TreeModel) ensureCursorVisible() {
	if t.tree.LookupTable().Len() == 0 {
		t.offset = 0
		return
	}
	t.tree.ScrollTo(t.cursor)
	start, end := t.tree.Viewport()
	rows := t.viewRows()
	t.offset = max(start, min(t.offset, end-rows))
	switch {
	case t.cursor < t.offset:
		t.offset = t.cursor
	case t.cursor >= t.offset+rows:
		t.offset = t.cursor - rows + 1
	}
}

// MoveDown moves the cursor one row down.
func (t *TreeModel) MoveDown() { t.setCursor(t.cursor + 1) }

// MoveUp moves the cursor one row up.
func (t *TreeModel) MoveUp() { t.setCursor(t.cursor - 1) }

// JumpToTop selects the first row.
func (t *TreeModel) JumpToTop() { t.setCursor(0) }

// JumpToBottom selects the last row.
func (t *TreeModel) JumpToBottom() { t.setCursor(t.tree.LookupTable().Len() - 1) }

// PageDown moves the cursor down by half a screen.
func (t *TreeModel) PageDown() { t.setCursor(t.cursor + t.pageSize()) }

// PageUp moves the cursor up by half a screen.
func (t *TreeModel) PageUp() { t.setCursor(t.cursor - t.pageSize()) }

func (t *TreeModel) pageSize() int {
	return max(1, t.viewRows()/2)
}

// JumpToParent selects the parent of the selected row.
func (t *TreeModel) JumpToParent() {
	lt := t.tree.LookupTable()
	if i := lt.IndexOf(lt.Parent(t.cursor)); i >= 0 {
		t.setCursor(i)
	}
}

// ToggleSelected toggles the selected row through its widget, as a click
// on the open affordance would.
func (t *TreeModel) ToggleSelected() {
	if w := t.tree.RenderedWidget(t.cursor); w != nil {
		w.Toggle()
		t.sync()
	}
}

// ExpandOrMoveToChild handles the → / l key:
//   - a closed openable row is opened
//   - an open row moves the cursor to its first child
func (t *TreeModel) ExpandOrMoveToChild() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	st := t.tree.RowState(t.cursor)
	if !st.Openable {
		return
	}
	if !st.Open {
		_ = t.tree.OpenNode(n)
		t.sync()
		return
	}
	lt := t.tree.LookupTable()
	if next := t.cursor + 1; next < lt.Len() && lt.Depth(next) > st.Depth {
		t.setCursor(next)
	}
}

// CollapseOrJumpToParent handles the ← / h key:
//   - an open row is closed
//   - otherwise the cursor jumps to the parent
func (t *TreeModel) CollapseOrJumpToParent() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	if st := t.tree.RowState(t.cursor); st.Openable && (st.Open || st.Loading) {
		_ = t.tree.CloseNode(n)
		t.sync()
		return
	}
	t.JumpToParent()
}

// ExpandLevel opens one more level of the tree each time it is called.
func (t *TreeModel) ExpandLevel() {
	t.level++
	t.tree.OpenAll(t.level)
	t.sync()
}

// CollapseAll closes every node but the root.
func (t *TreeModel) CollapseAll() {
	t.level = 1
	t.tree.CloseAll()
	t.sync()
}

// View renders the rows currently bound to the widget pool.
func (t *TreeModel) View() string {
	if t.tree.LookupTable().Len() == 0 {
		return t.renderEmptyState()
	}
	var sb strings.Builder
	for i := 0; i < t.viewRows(); i++ {
		row := t.offset + i
		w := t.tree.RenderedWidget(row)
		if w == nil {
			break
		}
		line := t.renderRow(row, w.State())
		if row == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	titleStyle := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	mutedStyle := r.NewStyle().Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Tree View"))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("Nothing to display."))
	return sb.String()
}

func (t *TreeModel) renderRow(row int, st tree.RowState) string {
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(row)
	sb.WriteString(prefix)

	indicatorStyle := r.NewStyle().Foreground(t.theme.Secondary)
	sb.WriteString(indicatorStyle.Render(t.indicator(st)))
	sb.WriteString(" ")

	maxLabel := t.width - lipgloss.Width(prefix) - 2
	if st.LoadErr != nil {
		maxLabel -= len(" (failed to load)")
	}
	if t.width <= 0 {
		maxLabel = 0
	} else {
		maxLabel = max(1, maxLabel)
	}
	label := truncateLabel(st.Label, maxLabel)
	if st.Openable {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Primary).Render(label))
	} else {
		sb.WriteString(t.theme.Base.Render(label))
	}
	if st.LoadErr != nil {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Error).Render(" (failed to load)"))
	}
	return sb.String()
}

// indicator returns the expand/collapse glyph of a row.
func (t *TreeModel) indicator(st tree.RowState) string {
	switch {
	case st.Loading:
		return t.loading
	case !st.Openable:
		return "•"
	case st.Open:
		return "▾"
	default:
		return "▸"
	}
}

// buildTreePrefix draws the branch lines in front of row: one column per
// ancestor, then the branch of the row itself.
func (t *TreeModel) buildTreePrefix(row int) string {
	lt := t.tree.LookupTable()
	if lt.Depth(row) == 0 {
		return ""
	}
	treeStyle := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)

	var ancestors []int
	for p := lt.IndexOf(lt.Parent(row)); p >= 0; p = lt.IndexOf(lt.Parent(p)) {
		ancestors = append(ancestors, p)
	}

	var sb strings.Builder
	for i := len(ancestors) - 1; i >= 0; i-- {
		if t.hasSiblingsBelow(ancestors[i]) {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if t.hasSiblingsBelow(row) {
		sb.WriteString("├── ")
	} else {
		sb.WriteString("└── ")
	}
	return treeStyle.Render(sb.String())
}

// hasSiblingsBelow reports whether the node at row has a later sibling.
func (t *TreeModel) hasSiblingsBelow(row int) bool {
	lt := t.tree.LookupTable()
	n := lt.At(row)
	parent := lt.Parent(row)
	if parent == nil {
		parent = t.tree.Model()
		if parent == n {
			return false
		}
	}
	list := parent.Children()
	if list == nil {
		return false
	}
	i := list.IndexOf(n)
	return i >= 0 && i < list.Len()-1
}

// truncateLabel shortens s to maxWidth terminal cells with an ellipsis. A
// non-positive width leaves s as is.
func truncateLabel(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
