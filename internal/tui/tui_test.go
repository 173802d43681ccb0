package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

func scanFixture(t *testing.T, types ...document.VariableType) *scan.Report {
	t.Helper()
	provider, err := document.NewFileProvider("../document/testdata/tokens.json")
	require.NoError(t, err)
	report, err := scan.NewService(provider).Scan(t.Context(), scan.ScanOptions{Types: types})
	require.NoError(t, err)
	return report
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m BrowseModel, msgs ...tea.Msg) BrowseModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(BrowseModel)
	}
	return m
}

func TestNewBrowseSession(t *testing.T) {
	session := NewBrowseSession(scanFixture(t))

	require.Len(t, session.Items, 2)
	brand, primary := session.Items[0], session.Items[1]
	assert.Equal(t, "color/brand", brand.Variable.Name, "busiest variable first")
	assert.Equal(t, []string{"color/primary"}, brand.AliasedBy)
	assert.Empty(t, brand.AliasOf)
	assert.Equal(t, []string{"color/brand"}, primary.AliasOf)

	assert.Equal(t, 3, session.PeakUsage)
	assert.Equal(t, 2, session.Stats.VariableCount)
	assert.Equal(t, 2, session.TypeCounts["COLOR"])
	assert.Equal(t, 2, session.Counts()[MarkNone])
}

func TestBrowseSession_Filter(t *testing.T) {
	session := NewBrowseSession(scanFixture(t))

	assert.Equal(t, []int{0, 1}, session.Filter(""))
	assert.Equal(t, []int{1}, session.Filter("PRIM"))
	assert.Equal(t, []int{0, 1}, session.Filter("theme"), "matches on collection")
	assert.Empty(t, session.Filter("spacing"))
}

func TestMark_String(t *testing.T) {
	assert.Equal(t, "unmarked", MarkNone.String())
	assert.Equal(t, "keep", MarkKeep.String())
	assert.Equal(t, "deprecate", MarkDeprecate.String())
	assert.Equal(t, "unknown", Mark(9).String())
}

func TestBrowseModel_NavigateAndMark(t *testing.T) {
	session := NewBrowseSession(scanFixture(t))
	m := NewBrowseModel(session)
	require.Equal(t, "color/brand", m.Selected().Variable.Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "color/primary", m.Selected().Variable.Name)

	m = press(t, m, runes("j"))
	assert.Equal(t, "color/primary", m.Selected().Variable.Name, "cursor stops at the end")

	m = press(t, m, runes("x"))
	assert.Equal(t, MarkDeprecate, session.Items[1].Mark)

	m = press(t, m, runes("k"), runes("p"))
	assert.Equal(t, MarkKeep, session.Items[0].Mark)

	m = press(t, m, runes("u"))
	assert.Equal(t, MarkNone, session.Items[0].Mark)
}

func TestBrowseModel_DetailPaneScrollsInsteadOfMoving(t *testing.T) {
	m := NewBrowseModel(NewBrowseSession(scanFixture(t)))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, runes("j"))
	assert.Equal(t, PaneDetail, m.activePane)
	assert.Equal(t, "color/brand", m.Selected().Variable.Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, runes("j"))
	assert.Equal(t, "color/primary", m.Selected().Variable.Name)
}

func TestBrowseModel_Filter(t *testing.T) {
	m := NewBrowseModel(NewBrowseSession(scanFixture(t)))

	m = press(t, m, runes("/"))
	require.True(t, m.filterMode)

	m = press(t, m, runes("prim"), runes("q"))
	assert.False(t, m.quitting, "typing in the filter does not quit")
	assert.Equal(t, "primq", m.textInput.Value())
	assert.Empty(t, m.visible)
	assert.Nil(t, m.Selected())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filterMode)
	require.Len(t, m.visible, 1)
	assert.Equal(t, "color/primary", m.Selected().Variable.Name)

	m = press(t, m, runes("/"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.visible, 2, "escape clears the filter")
}

func TestBrowseModel_Quit(t *testing.T) {
	m := NewBrowseModel(NewBrowseSession(scanFixture(t)))

	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}

func TestBrowseModel_View(t *testing.T) {
	m := NewBrowseModel(NewBrowseSession(scanFixture(t)))
	m = press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := m.View()
	assert.Contains(t, view, "Variable Network")
	assert.Contains(t, view, "color/brand")
	assert.Contains(t, view, "color/primary")
	assert.Contains(t, view, "Variables [1/2]")
	assert.Contains(t, view, "#FF0000")
	assert.Contains(t, view, "Aliased by")

	empty := NewBrowseModel(&BrowseSession{})
	assert.Contains(t, empty.View(), "No variables")
}

func TestSummaryModel_View(t *testing.T) {
	session := NewBrowseSession(scanFixture(t))
	session.Items[1].Mark = MarkDeprecate

	view := NewSummaryModel(session).View()
	assert.Contains(t, view, "Browse Summary")
	assert.Contains(t, view, "Marked for deprecation")
	assert.Contains(t, view, "color/primary")
	assert.Contains(t, view, "still used 2 times")
}

func TestRenderReport(t *testing.T) {
	report := scanFixture(t, document.TypeColor, document.TypeFloat, document.TypeBoolean)
	out := RenderReport(report, 80)

	assert.Contains(t, out, "Census")
	assert.Contains(t, out, "BOOLEAN")
	assert.Contains(t, out, "Most used")
	assert.Contains(t, out, "Unused (1)")

	unused := out[strings.Index(out, "Unused (1)"):]
	assert.Contains(t, unused, "feature/flag")
	assert.NotContains(t, unused, "color/brand")
}

func TestSaveMarks(t *testing.T) {
	session := NewBrowseSession(scanFixture(t))
	session.Items[0].Mark = MarkKeep

	path := filepath.Join(t.TempDir(), "marks.json")
	require.NoError(t, SaveMarks(session, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got MarksReport
	require.NoError(t, json.Unmarshal(data, &got))

	require.Len(t, got.Items, 1)
	assert.Equal(t, "v-brand", got.Items[0].ID)
	assert.Equal(t, "keep", got.Items[0].Mark)
	assert.Equal(t, MarksReportSummary{Total: 2, Keep: 1, Unmarked: 1}, got.Summary)
}

func TestUsageColor(t *testing.T) {
	unused := UsageColor(0, 10).Render("x")
	rare := UsageColor(1, 10).Render("x")
	busy := UsageColor(10, 10).Render("x")
	for _, s := range []string{unused, rare, busy} {
		assert.Contains(t, s, "x")
	}
	assert.Equal(t, "  ", Swatch("red"))
}
