package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/varnet/internal/document"
)

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorPurple = "#bc8cff"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Help     lipgloss.Style

	// Mark badges
	MarkKeep      lipgloss.Style
	MarkDeprecate lipgloss.Style
	MarkNone      lipgloss.Style

	// Detail panel
	Detail lipgloss.Style

	// List rows
	Row       lipgloss.Style
	ActiveRow lipgloss.Style

	// Borders
	Border       lipgloss.Style
	ActiveBorder lipgloss.Style

	// Pane titles
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			MarginBottom(1),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Width(14),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		MarkKeep:      badge.Background(lipgloss.Color(ColorGreen)),
		MarkDeprecate: badge.Background(lipgloss.Color(ColorRed)),
		MarkNone:      badge.Background(lipgloss.Color(ColorGray)),

		Detail: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCard)).
			Foreground(lipgloss.Color(ColorText)).
			Padding(1, 2),

		Row: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		ActiveRow: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 1),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.Border{Bottom: "─"}).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(ColorBlue)),
	}
}

// TypeColor returns the accent colour used for a variable type.
func TypeColor(t document.VariableType) lipgloss.Color {
	switch t {
	case document.TypeColor:
		return lipgloss.Color(ColorPurple)
	case document.TypeFloat:
		return lipgloss.Color(ColorBlue)
	case document.TypeString:
		return lipgloss.Color(ColorGreen)
	case document.TypeBoolean:
		return lipgloss.Color(ColorYellow)
	default:
		return lipgloss.Color(ColorGray)
	}
}

// UsageColor returns a styled badge for a usage count relative to the
// busiest variable: red for unused, yellow below a fifth of the peak, green
// otherwise.
func UsageColor(total, peak int) lipgloss.Style {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)

	switch {
	case total == 0:
		return style.Background(lipgloss.Color(ColorRed))
	case peak > 0 && total*5 < peak:
		return style.Background(lipgloss.Color(ColorYellow))
	default:
		return style.Background(lipgloss.Color(ColorGreen))
	}
}

// Swatch renders a two-cell block filled with a #RRGGBB colour. Other
// values render as blanks.
func Swatch(hex string) string {
	if len(hex) != 7 && len(hex) != 9 {
		return "  "
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex[:7])).Render("  ")
}
