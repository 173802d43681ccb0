package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/varnet/internal/scan"
)

// topVariables is how many of the busiest variables a report lists.
const topVariables = 10

// SummaryModel displays the marks collected during a browse
type SummaryModel struct {
	session  *BrowseSession
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *BrowseSession) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Browse Summary"))
	b.WriteString("\n\n")

	counts := m.session.Counts()
	b.WriteString(m.styles.Subtitle.Render("Marks"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Total variables:   %d\n", len(m.session.Items))
	fmt.Fprintf(&b, "  Keep:              %s\n", colored(ColorGreen, counts[MarkKeep]))
	fmt.Fprintf(&b, "  Deprecate:         %s\n", colored(ColorRed, counts[MarkDeprecate]))
	fmt.Fprintf(&b, "  Unmarked:          %s\n", colored(ColorGray, counts[MarkNone]))
	b.WriteString("\n")

	if counts[MarkDeprecate] > 0 {
		b.WriteString(m.styles.Subtitle.Render("Marked for deprecation:"))
		b.WriteString("\n\n")
		for _, item := range m.session.Items {
			if item.Mark != MarkDeprecate {
				continue
			}
			fmt.Fprintf(&b, "  %s %s", item.Variable.Name, m.styles.MarkDeprecate.Render("DEPRECATE"))
			if !item.Unused() {
				fmt.Fprintf(&b, "  still used %d times", item.Variable.TotalUsage)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("Press enter to save and exit"))
	return b.String()
}

// RenderReport renders a static summary of a scan report, suitable for
// printing to a terminal.
func RenderReport(report *scan.Report, width int) string {
	styles := DefaultStyles()
	session := NewBrowseSession(report)
	stats := session.Stats

	var b strings.Builder
	b.WriteString(styles.Title.Render("Variable Network"))
	b.WriteString("\n")

	b.WriteString(styles.Subtitle.Render("Census"))
	b.WriteString("\n")
	types := make([]string, 0, len(session.TypeCounts))
	for t := range session.TypeCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %-10s %d\n", t, session.TypeCounts[t])
	}
	b.WriteString("\n")

	b.WriteString(styles.Subtitle.Render("Network"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Variables:        %d\n", stats.VariableCount)
	fmt.Fprintf(&b, "  Collections:      %d\n", stats.CollectionCount)
	fmt.Fprintf(&b, "  Alias edges:      %d\n", stats.AliasEdgeCount)
	fmt.Fprintf(&b, "  Bindings:         %d\n", report.Stats.Bindings)
	fmt.Fprintf(&b, "  Nodes visited:    %d\n", report.Stats.NodesVisited)
	if len(stats.AliasCycles) > 0 {
		fmt.Fprintf(&b, "  Alias cycles:     %s\n", colored(ColorRed, len(stats.AliasCycles)))
	}
	b.WriteString("\n")

	if len(session.Items) > 0 {
		b.WriteString(styles.Subtitle.Render("Most used"))
		b.WriteString("\n")
		nameWidth := max(width-24, 16)
		for i, item := range session.Items {
			if i == topVariables {
				break
			}
			v := item.Variable
			badge := UsageColor(v.TotalUsage, session.PeakUsage).Render(fmt.Sprintf("%3d", v.TotalUsage))
			fmt.Fprintf(&b, "  %s %s (%d direct)\n", badge, truncateLine(v.Name, nameWidth), v.DirectUsage)
		}
		b.WriteString("\n")
	}

	if len(stats.Unused) > 0 {
		b.WriteString(styles.Subtitle.Render(fmt.Sprintf("Unused (%d)", len(stats.Unused))))
		b.WriteString("\n")
		for _, item := range session.Items {
			if item.Unused() {
				fmt.Fprintf(&b, "  %s\n", item.Variable.Name)
			}
		}
	}

	return lipgloss.NewStyle().MaxWidth(max(width, 40)).Render(strings.TrimRight(b.String(), "\n"))
}

func colored(color string, n int) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(fmt.Sprintf("%d", n))
}
