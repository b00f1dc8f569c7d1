package ui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ProjectEntry holds display data for one project in the picker.
type ProjectEntry struct {
	Name string
	Path string
}

// ProjectEntries builds picker entries from project root paths.
func ProjectEntries(paths []string) []ProjectEntry {
	entries := make([]ProjectEntry, len(paths))
	for i, p := range paths {
		entries[i] = ProjectEntry{Name: filepath.Base(p), Path: p}
	}
	return entries
}

// ProjectPickerModel is a filterable list of projects. Enter selects the
// highlighted project and quits the program.
type ProjectPickerModel struct {
	entries     []ProjectEntry
	filtered    []int // indices into entries
	cursor      int
	width       int
	filterInput textinput.Model
	theme       Theme
	chosen      *ProjectEntry
}

// NewProjectPicker creates a new project picker.
func NewProjectPicker(entries []ProjectEntry, theme Theme) ProjectPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Focus()

	m := ProjectPickerModel{
		entries:     entries,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	return m
}

func (m ProjectPickerModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles keyboard input for the project picker.
func (m ProjectPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if e := m.SelectedEntry(); e != nil {
				m.chosen = e
			}
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

// applyFilter updates the filtered indices based on the current filter input.
func (m *ProjectPickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
		m.cursor = max(0, min(m.cursor, len(m.filtered)-1))
		return
	}

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, entry := range m.entries {
		best := max(fuzzyScore(strings.ToLower(entry.Name), query), fuzzyScore(strings.ToLower(entry.Path), query))
		if best > 0 {
			matches = append(matches, scored{i, best})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.index
	}
	m.cursor = max(0, min(m.cursor, len(m.filtered)-1))
}

// fuzzyScore scores how well query matches s as a subsequence. Zero means
// no match; contiguous runs and a match at the start score higher.
func fuzzyScore(s, query string) int {
	if query == "" {
		return 1
	}
	if strings.HasPrefix(s, query) {
		return 1000 + len(query)
	}
	if strings.Contains(s, query) {
		return 500 + len(query)
	}
	score, run := 0, 0
	q := []rune(query)
	qi := 0
	for _, r := range s {
		if qi < len(q) && r == q[qi] {
			qi++
			run++
			score += run
		} else {
			run = 0
		}
	}
	if qi < len(q) {
		return 0
	}
	return score
}

func (m ProjectPickerModel) View() string {
	t := m.theme
	r := t.Renderer
	titleStyle := r.NewStyle().Foreground(t.Primary).Bold(true)
	pathStyle := r.NewStyle().Foreground(t.Muted)
	dimStyle := r.NewStyle().Foreground(t.Secondary).Italic(true)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("projects[%d]", len(m.filtered))))
	sb.WriteString("\n")
	sb.WriteString("  / " + m.filterInput.View())
	sb.WriteString("\n\n")

	if len(m.filtered) == 0 {
		sb.WriteString(dimStyle.Render("  No projects found. Configure discovery.scan_paths in the config file."))
		sb.WriteString("\n")
	}
	for i, idx := range m.filtered {
		e := m.entries[idx]
		line := fmt.Sprintf("  %s  %s", e.Name, pathStyle.Render(e.Path))
		if i == m.cursor {
			line = t.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(pathStyle.Render("↑/↓: navigate | enter: select | esc: cancel"))
	return sb.String()
}

// Cursor returns the current cursor position.
func (m ProjectPickerModel) Cursor() int {
	return m.cursor
}

// FilteredCount returns the number of entries matching the current filter.
func (m ProjectPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the currently highlighted project entry, or nil if none.
func (m ProjectPickerModel) SelectedEntry() *ProjectEntry {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}

// Chosen returns the project picked with enter, or nil when the picker was
// cancelled.
func (m ProjectPickerModel) Chosen() *ProjectEntry {
	return m.chosen
}
