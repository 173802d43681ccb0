package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/varnet/internal/document"
)

type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

type BrowseModel struct {
	session    *BrowseSession
	styles     *Styles
	visible    []int // indices into session.Items after filtering
	cursor     int   // position in visible
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	filterMode bool
	textInput  textinput.Model
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Tab       key.Binding
	Keep      key.Binding
	Deprecate key.Binding
	Clear     key.Binding
	Filter    key.Binding
	Enter     key.Binding
	Quit      key.Binding
	Escape    key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		km.Up,
		km.Down,
		km.Tab,
		km.Keep,
		km.Deprecate,
		km.Filter,
		km.Quit,
	}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Keep, km.Deprecate, km.Clear},
		{km.Filter, km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Keep: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "keep"),
		),
		Deprecate: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "deprecate"),
		),
		Clear: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unmark"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func NewBrowseModel(session *BrowseSession) BrowseModel {
	ti := textinput.New()
	ti.Placeholder = "name or collection..."
	ti.Width = 40

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	m := BrowseModel{
		session:    session,
		styles:     DefaultStyles(),
		visible:    session.Filter(""),
		viewport:   vp,
		activePane: PaneList,
		width:      80,
		height:     24,
		textInput:  ti,
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.resize()
	return m
}

// Selected returns the item under the cursor, nil when the filter hides
// everything.
func (m BrowseModel) Selected() *BrowseItem {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.session.Items[m.visible[m.cursor]]
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.filterMode {
			switch {
			case key.Matches(msg, m.keys.Enter):
				m.filterMode = false
				m.textInput.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Escape):
				m.filterMode = false
				m.textInput.Blur()
				m.textInput.SetValue("")
				m.applyFilter()
				return m, nil
			default:
				m.textInput, cmd = m.textInput.Update(msg)
				m.applyFilter()
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, m.keys.Down):
			if m.activePane == PaneDetail {
				m.viewport.LineDown(1)
				return m, nil
			}
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				m.refreshDetail()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.activePane == PaneDetail {
				m.viewport.LineUp(1)
				return m, nil
			}
			if m.cursor > 0 {
				m.cursor--
				m.refreshDetail()
			}
			return m, nil

		case key.Matches(msg, m.keys.Tab):
			if m.activePane == PaneList {
				m.activePane = PaneDetail
			} else {
				m.activePane = PaneList
			}
			return m, nil

		case key.Matches(msg, m.keys.Keep):
			m.mark(MarkKeep)
			return m, nil

		case key.Matches(msg, m.keys.Deprecate):
			m.mark(MarkDeprecate)
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.mark(MarkNone)
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.filterMode = true
			m.textInput.Focus()
			return m, nil

		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Escape):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *BrowseModel) mark(mark Mark) {
	if item := m.Selected(); item != nil {
		item.Mark = mark
		m.refreshDetail()
	}
}

func (m *BrowseModel) applyFilter() {
	m.visible = m.session.Filter(m.textInput.Value())
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
	m.refreshDetail()
}

func (m *BrowseModel) resize() {
	m.viewport.Width = max(m.width-m.listWidth()-8, 10)
	m.viewport.Height = max(m.height-8, 3)
	m.refreshDetail()
}

func (m *BrowseModel) refreshDetail() {
	m.viewport.SetContent(m.renderDetail(m.Selected()))
	m.viewport.GotoTop()
}

func (m BrowseModel) listWidth() int {
	return max(m.width/3, 24)
}

func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	if len(m.session.Items) == 0 {
		return m.styles.Subtitle.Render("No variables matched the scan")
	}

	sections := []string{
		m.renderTopBar(),
		m.renderPanels(),
		m.renderBottom(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BrowseModel) renderTopBar() string {
	title := m.styles.Title.Render("Variable Network")

	counts := m.session.Counts()
	stats := fmt.Sprintf("%d variables  %d aliases  %d unused  %d marked deprecate",
		m.session.Stats.VariableCount,
		m.session.Stats.AliasEdgeCount,
		len(m.session.Stats.Unused),
		counts[MarkDeprecate],
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.styles.Subtitle.Render(stats))
}

func (m BrowseModel) renderPanels() string {
	list := m.renderList()
	detail := m.renderPane("Details", m.viewport.View(), m.activePane == PaneDetail)

	list = lipgloss.NewStyle().Width(m.listWidth()).Render(list)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail)
}

func (m BrowseModel) renderList() string {
	rows := max(m.height-8, 1)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}

	var lines []string
	for pos := start; pos < len(m.visible) && pos < start+rows; pos++ {
		item := m.session.Items[m.visible[pos]]
		badge := UsageColor(item.Variable.TotalUsage, m.session.PeakUsage).
			Render(fmt.Sprintf("%3d", item.Variable.TotalUsage))
		name := truncateLine(item.Variable.Name, m.listWidth()-12)

		prefix := "  "
		style := m.styles.Row
		if pos == m.cursor {
			prefix = "> "
			style = m.styles.ActiveRow
		}
		if item.Mark == MarkDeprecate {
			name += " ✗"
		}
		lines = append(lines, prefix+badge+" "+style.Render(name))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Help.Render("no match"))
	}

	title := fmt.Sprintf("Variables [%d/%d]", min(m.cursor+1, len(m.visible)), len(m.visible))
	return m.renderPane(title, strings.Join(lines, "\n"), m.activePane == PaneList)
}

func (m BrowseModel) renderPane(title, body string, active bool) string {
	style := m.styles.Border
	titleStyled := m.styles.Tab.Render(title)
	if active {
		style = m.styles.ActiveBorder
		titleStyled = m.styles.ActiveTab.Render(title)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyled, body))
}

func (m BrowseModel) renderDetail(item *BrowseItem) string {
	if item == nil {
		return ""
	}
	v := item.Variable
	label := m.styles.Label.Render

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(v.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s%s\n", label("Type"), lipgloss.NewStyle().Foreground(TypeColor(v.Type)).Render(string(v.Type)))
	fmt.Fprintf(&b, "%s%s\n", label("Collection"), v.Collection)
	fmt.Fprintf(&b, "%s%s\n", label("Mark"), m.formatMark(item.Mark))

	b.WriteString("\n")
	for _, mode := range v.Modes {
		value := v.Values[mode]
		if v.Type == document.TypeColor {
			value = Swatch(value) + " " + value
		}
		if ref := v.References[mode]; ref != nil {
			value += "  → " + *ref
		}
		fmt.Fprintf(&b, "%s%s\n", label(mode), value)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s%d direct, %d total\n", label("Usage"), v.DirectUsage, v.TotalUsage)
	fmt.Fprintf(&b, "%s%d component, %d instance, %d detached\n", label("Bindings"),
		v.UsageBreakdown.ComponentLevel, v.UsageBreakdown.InstanceLevel, v.UsageBreakdown.Detached)
	if len(item.AliasOf) > 0 {
		fmt.Fprintf(&b, "%s%s\n", label("Aliases"), strings.Join(item.AliasOf, ", "))
	}
	if len(item.AliasedBy) > 0 {
		fmt.Fprintf(&b, "%s%s\n", label("Aliased by"), strings.Join(item.AliasedBy, ", "))
	}

	if len(v.NodeUsage) > 0 {
		b.WriteString("\n")
		b.WriteString(label("Nodes"))
		b.WriteString("\n")
		for _, n := range v.NodeUsage {
			fmt.Fprintf(&b, "  %s  %s (%s)\n", n.ID, n.Name, n.Kind)
		}
	}
	return b.String()
}

func (m BrowseModel) formatMark(mark Mark) string {
	switch mark {
	case MarkKeep:
		return m.styles.MarkKeep.Render("keep")
	case MarkDeprecate:
		return m.styles.MarkDeprecate.Render("deprecate")
	default:
		return m.styles.MarkNone.Render("unmarked")
	}
}

func truncateLine(line string, maxWidth int) string {
	if lipgloss.Width(line) <= maxWidth {
		return line
	}
	if maxWidth < 3 {
		return "..."
	}
	runes := []rune(line)
	if len(runes) > maxWidth-3 {
		runes = runes[:maxWidth-3]
	}
	return string(runes) + "..."
}

func (m BrowseModel) renderBottom() string {
	if m.filterMode {
		return m.styles.Help.Render("Filter: " + m.textInput.View())
	}
	return m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}
