package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders static rows with aligned columns.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table. An empty table renders as "".
func (t *Table) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	widths := t.columnWidths()
	t.writeLine(&sb, styles, widths, styles.Bold, t.Headers)
	t.writeLine(&sb, styles, widths, styles.Muted, nil)
	for _, row := range t.Rows {
		t.writeLine(&sb, styles, widths, styles.Body, row)
	}
	return sb.String()
}

// columnWidths is the widest cell per header column; extra cells are dropped.
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
		for _, row := range t.Rows {
			if i < len(row) {
				widths[i] = max(widths[i], lipgloss.Width(row[i]))
			}
		}
	}
	return widths
}

// writeLine writes one padded row. A nil cells slice writes the rule under
// the header instead.
func (t *Table) writeLine(sb *strings.Builder, styles Styles, widths []int, style lipgloss.Style, cells []string) {
	for i, w := range widths {
		if i > 0 {
			if cells == nil {
				sb.WriteString(styles.Muted.Render("+"))
			} else {
				sb.WriteString(styles.Muted.Render("|"))
			}
		}
		if cells == nil {
			sb.WriteString(style.Render(strings.Repeat("-", w+2)))
			continue
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(style.Padding(0, 1).Width(w + 2).Render(cell))
	}
	sb.WriteString("\n")
}
