package report

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	lightForeground = lipgloss.Color("#101F38")
	lightPrimary    = lipgloss.Color("#101F38")
	lightMuted      = lipgloss.Color("#8a94a6")

	darkForeground = lipgloss.Color("#f2f2f2")
	darkPrimary    = lipgloss.Color("#8BC34A")
	darkMuted      = lipgloss.Color("#6b7a93")

	warningColor = lipgloss.Color("#FFC107")
	successColor = lipgloss.Color("#8BC34A")
)

// Styles holds the lipgloss styles used by the terminal report.
type Styles struct {
	Title   lipgloss.Style
	Body    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewStyles returns styles for a dark or light terminal background.
func NewStyles(dark bool) Styles {
	fg, primary, muted := lightForeground, lightPrimary, lightMuted
	if dark {
		fg, primary, muted = darkForeground, darkPrimary, darkMuted
	}
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			MarginBottom(1),
		Body:    lipgloss.NewStyle().Foreground(fg),
		Bold:    lipgloss.NewStyle().Foreground(fg).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Warning: lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		Success: lipgloss.NewStyle().Foreground(successColor).Bold(true),
	}
}

// PlainStyles renders without any color or decoration.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Body: s, Bold: s, Muted: s, Warning: s, Success: s}
}

// DetectStyles picks styles from the environment: NO_COLOR disables styling,
// COLORFGBG with a dark background index or PROXEEK_DARK_MODE=1 selects the
// dark palette.
func DetectStyles() Styles {
	if os.Getenv("NO_COLOR") != "" {
		return PlainStyles()
	}
	if os.Getenv("PROXEEK_DARK_MODE") == "1" {
		return NewStyles(true)
	}
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return NewStyles(true)
		}
	}
	return NewStyles(false)
}
