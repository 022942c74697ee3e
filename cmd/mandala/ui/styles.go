// Package ui renders grids, comparisons and reflections for the terminal.
// Styles are bound to a lipgloss renderer for the destination writer, so output
// to a pipe or buffer carries no escape sequences.
package ui

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#101F38")
	LightAccent     = lipgloss.Color("#8BC34A")
	LightMuted      = lipgloss.Color("#8a94a6")
	LightBorder     = lipgloss.Color("#c4cad3")

	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#8BC34A")
	DarkAccent     = lipgloss.Color("#4db6ac")
	DarkMuted      = lipgloss.Color("#7d8aa3")
	DarkBorder     = lipgloss.Color("#2a3850")

	// Verdict colors, shared by both themes
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks dark mode from COLORFGBG or MANDALA_DARK_MODE=1,
// light otherwise.
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil {
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
		}
	}

	if os.Getenv("MANDALA_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Cell    lipgloss.Style
	Center  lipgloss.Style
	Border  lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates styles for theme bound to renderer r.
func NewStyles(r *lipgloss.Renderer, theme Theme) Styles {
	return Styles{
		Theme: theme,

		Title: r.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: r.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: r.NewStyle().
			Foreground(theme.Foreground),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: r.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: r.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: r.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: r.NewStyle().
			Foreground(Info),

		Cell: r.NewStyle().
			Foreground(theme.Foreground).
			Align(lipgloss.Center).
			Padding(0, 1),

		Center: r.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),

		Border: r.NewStyle().
			Foreground(theme.Border),

		Divider: r.NewStyle().
			Foreground(theme.Border),
	}
}

// StylesFor returns styles with the detected theme for output written to w.
func StylesFor(w io.Writer) Styles {
	return NewStyles(lipgloss.NewRenderer(w), DetectTheme())
}

// RenderDivider returns a horizontal divider of width runes.
func (s Styles) RenderDivider(char string, width int) string {
	return s.Divider.Render(strings.Repeat(char, width))
}
