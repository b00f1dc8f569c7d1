// Package ui provides the terminal tree browser.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/vtree/pkg/loop"
	"github.com/vanderheijden86/vtree/pkg/model"
	"github.com/vanderheijden86/vtree/pkg/tree"
)

// queueReadyMsg is sent when work was posted to the controller's queue.
type queueReadyMsg struct{}

// waitForQueue blocks until q has work and reports it to the program, so
// lazy load results and file system changes are applied on the UI thread.
func waitForQueue(q *loop.Queue) tea.Cmd {
	return func() tea.Msg {
		<-q.Ready()
		return queueReadyMsg{}
	}
}

// Model is the root program model of the browser.
type Model struct {
	tree    TreeModel
	queue   *loop.Queue
	theme   Theme
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	title    string
	status   string
	failed   bool
	spinning bool
	width    int
	height   int

	pathOf func(model.Node) string
	copy   func(string) error
}

// NewModel returns the browser over tr. q must be the scheduler tr was
// created with.
func NewModel(tr *tree.Tree, q *loop.Queue, title string) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)
	return Model{
		tree:    NewTreeModel(tr, theme),
		queue:   q,
		theme:   theme,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		title:   title,
		pathOf:  func(n model.Node) string { return n.Label() },
		copy:    clipboard.WriteAll,
	}
}

// WithTheme replaces the theme.
func (m Model) WithTheme(theme Theme) Model {
	m.theme = theme
	m.tree.theme = theme
	return m
}

// WithPathFunc sets what the copy key puts on the clipboard for a node.
func (m Model) WithPathFunc(fn func(model.Node) string) Model {
	m.pathOf = fn
	return m
}

// WithClipboard replaces the clipboard writer.
func (m Model) WithClipboard(fn func(string) error) Model {
	m.copy = fn
	return m
}

// TreeView returns a copy of the tree view.
func (m Model) TreeView() TreeModel { return m.tree }

// Status returns the last status message.
func (m Model) Status() string { return m.status }

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForQueue(m.queue), m.spinCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case queueReadyMsg:
		m.queue.Flush()
		m.tree.sync()
		return m, tea.Batch(waitForQueue(m.queue), m.spinCmd())

	case spinner.TickMsg:
		if m.tree.Tree().Stats().Pending == 0 {
			m.spinning = false
			m.tree.SetLoadingGlyph("…")
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.tree.SetLoadingGlyph(m.spinner.View())
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.failed = "", false
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleSelected()
	case key.Matches(msg, m.keys.Expand):
		m.tree.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Collapse):
		m.tree.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandLevel()
	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	}
	m.queue.Flush()
	m.tree.sync()
	return m, m.spinCmd()
}

// spinCmd starts the spinner when a load is in flight and it is not running.
func (m *Model) spinCmd() tea.Cmd {
	if m.spinning || m.tree.Tree().Stats().Pending == 0 {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) copySelected() {
	n := m.tree.SelectedNode()
	if n == nil {
		return
	}
	text := m.pathOf(n)
	if err := m.copy(text); err != nil {
		m.status, m.failed = fmt.Sprintf("copy failed: %v", err), true
		return
	}
	m.status = "copied " + text
}

// layout gives the tree every line not used by the header and footer.
func (m *Model) layout() {
	if m.height == 0 {
		return
	}
	helpLines := strings.Count(m.help.View(m.keys), "\n") + 1
	m.tree.SetSize(m.width, max(1, m.height-2-helpLines))
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.tree.View())
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderFooter())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	return r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render(m.title)
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer
	countStyle := r.NewStyle().Foreground(m.theme.Secondary)

	parts := []string{countStyle.Render(fmt.Sprintf("%d/%d", m.tree.Cursor()+1, m.tree.NodeCount()))}
	if pending := m.tree.Tree().Stats().Pending; pending > 0 {
		parts = append(parts, countStyle.Render(fmt.Sprintf("loading %d", pending)))
	}
	if st := m.tree.Tree().RowState(m.tree.Cursor()); st.LoadErr != nil {
		parts = append(parts, r.NewStyle().Foreground(m.theme.Error).Render(st.LoadErr.Error()))
	}
	if m.status != "" {
		style := r.NewStyle().Foreground(m.theme.Subtext)
		if m.failed {
			style = style.Foreground(m.theme.Error)
		}
		parts = append(parts, style.Render(m.status))
	}
	return strings.Join(parts, "  ")
}
