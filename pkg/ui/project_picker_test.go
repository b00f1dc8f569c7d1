package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestPicker() ProjectPickerModel {
	entries := ProjectEntries([]string{"/src/api-service", "/src/web-frontend", "/work/data-pipeline"})
	return NewProjectPicker(entries, newTreeTestTheme())
}

func pickerSend(m ProjectPickerModel, msgs ...tea.Msg) (ProjectPickerModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(ProjectPickerModel)
	}
	return m, cmd
}

func TestProjectEntries(t *testing.T) {
	entries := ProjectEntries([]string{"/a/b/alpha"})
	if len(entries) != 1 || entries[0].Name != "alpha" || entries[0].Path != "/a/b/alpha" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestProjectPickerListsAll(t *testing.T) {
	m := newTestPicker()
	if m.FilteredCount() != 3 {
		t.Fatalf("expected 3 entries, got %d", m.FilteredCount())
	}
	out := m.View()
	for _, name := range []string{"api-service", "web-frontend", "data-pipeline", "projects[3]"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %q in view:\n%s", name, out)
		}
	}
}

func TestProjectPickerNavigation(t *testing.T) {
	m := newTestPicker()
	m, _ = pickerSend(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor())
	}
	m, _ = pickerSend(m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.SelectedEntry(); got == nil || got.Name != "web-frontend" {
		t.Errorf("selected %+v, want web-frontend", got)
	}
}

func TestProjectPickerFilter(t *testing.T) {
	m := newTestPicker()
	m, _ = pickerSend(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pipe")})
	if m.FilteredCount() != 1 {
		t.Fatalf("expected 1 match, got %d", m.FilteredCount())
	}
	m, cmd := pickerSend(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.Chosen(); got == nil || got.Path != "/work/data-pipeline" {
		t.Errorf("chosen %+v, want data-pipeline", got)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestProjectPickerNoMatch(t *testing.T) {
	m := newTestPicker()
	m, _ = pickerSend(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zzz")})
	if m.FilteredCount() != 0 || m.SelectedEntry() != nil {
		t.Fatalf("expected no matches, got %d", m.FilteredCount())
	}
	if !strings.Contains(m.View(), "No projects found") {
		t.Errorf("expected empty message:\n%s", m.View())
	}
	m, _ = pickerSend(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Chosen() != nil {
		t.Error("enter with no match should not choose")
	}
}

func TestProjectPickerCancel(t *testing.T) {
	m := newTestPicker()
	m, cmd := pickerSend(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Chosen() != nil {
		t.Error("esc should not choose")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		s, q string
		zero bool
	}{
		{"api-service", "api", false},
		{"api-service", "srv", false},
		{"api-service", "xyz", true},
		{"web", "webx", true},
	}
	for _, tt := range tests {
		got := fuzzyScore(tt.s, tt.q)
		if (got == 0) != tt.zero {
			t.Errorf("fuzzyScore(%q, %q) = %d", tt.s, tt.q, got)
		}
	}
	if fuzzyScore("api-service", "api") <= fuzzyScore("api-service", "ser") {
		t.Error("prefix match should outrank an inner match")
	}
	if fuzzyScore("api-service", "ser") <= fuzzyScore("api-service", "aie") {
		t.Error("contiguous match should outrank a scattered one")
	}
}
