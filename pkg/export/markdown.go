package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
)

// GenerateMarkdown renders rows as a nested bullet outline.
func GenerateMarkdown(rows []Row, title string) (string, error) {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	// Summary
	s := Summarize(rows)
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Rows**: %d\n", s.Rows))
	sb.WriteString(fmt.Sprintf("- **Open**: %d\n", s.Open))
	sb.WriteString(fmt.Sprintf("- **Max depth**: %d\n\n", s.MaxDepth))

	sb.WriteString("## Outline\n\n")
	if len(rows) == 0 {
		sb.WriteString("_empty tree_\n")
		return sb.String(), nil
	}
	for _, r := range rows {
		sb.WriteString(strings.Repeat("  ", r.Depth))
		sb.WriteString("- ")
		label := escapeMarkdown(r.Label)
		switch {
		case r.Failed:
			sb.WriteString(label + " _(failed to load)_")
		case r.Openable:
			sb.WriteString("**" + label + "**")
		default:
			sb.WriteString(label)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(rows []Row, title, filename string) error {
	content, err := GenerateMarkdown(rows, title)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

// RenderTerminal styles markdown for a terminal of the given width.
func RenderTerminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
