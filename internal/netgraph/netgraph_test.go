package netgraph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

func record(id, name string, t document.VariableType, collection string, direct, total int, first string) *scan.VariableReport {
	return &scan.VariableReport{
		ID:           id,
		Name:         name,
		Type:         t,
		Collection:   collection,
		CollectionID: "c-" + strings.ToLower(collection),
		Modes:        []string{"Light", "Dark"},
		Values:       map[string]string{"Light": first, "Dark": first},
		DirectUsage:  direct,
		TotalUsage:   total,
	}
}

func sampleReport() *scan.Report {
	return &scan.Report{
		Variables: []*scan.VariableReport{
			record("brand", "color/brand", document.TypeColor, "Primitives", 4, 7, "#FF0000"),
			record("primary", "color/primary", document.TypeColor, "Theme", 3, 3, "#FF0000"),
			record("gap", "space/gap", document.TypeFloat, "Primitives", 2, 2, "8"),
			record("unused", "color/unused", document.TypeColor, "Theme", 0, 0, "#000000"),
		},
		Relationships: []scan.Edge{
			{From: "brand", To: "primary", Mode: "Light"},
			{From: "brand", To: "primary", Mode: "Dark"},
		},
	}
}

func cyclicReport() *scan.Report {
	return &scan.Report{
		Variables: []*scan.VariableReport{
			record("a", "a", document.TypeColor, "Theme", 1, 3, "#000000"),
			record("b", "b", document.TypeColor, "Theme", 1, 3, "#000000"),
			record("c", "c", document.TypeColor, "Theme", 1, 3, "#000000"),
		},
		Relationships: []scan.Edge{
			{From: "b", To: "a", Mode: "Light"},
			{From: "c", To: "b", Mode: "Light"},
			{From: "a", To: "c", Mode: "Light"},
		},
	}
}

func TestAnalyze(t *testing.T) {
	g := Analyze(sampleReport())

	assert.Equal(t, 2, g.Stats.CollectionCount)
	assert.Equal(t, 4, g.Stats.VariableCount)
	assert.Equal(t, 6, g.Stats.TotalNodes)
	assert.Equal(t, 1, g.Stats.AliasEdgeCount, "modes of one pair merge into a single edge")
	assert.Equal(t, 5, g.Stats.TotalEdges, "four contains edges plus one alias edge")
	assert.Equal(t, map[string]int{"COLOR": 3, "FLOAT": 1}, g.Stats.TypeCounts)
	assert.Equal(t, map[string]int{"Primitives": 2, "Theme": 2}, g.Stats.CollectionSizes)
	assert.Equal(t, "var:brand", g.Stats.HotspotNode)
	assert.Equal(t, 7, g.Stats.HotspotUsage)
	assert.Equal(t, []string{"var:unused"}, g.Stats.Unused)
	assert.Equal(t, 3, g.Stats.ConnectedComponents)
	assert.Empty(t, g.Stats.AliasCycles)

	var alias Edge
	for _, e := range g.Edges {
		if e.Kind == EdgeAliasedBy {
			alias = e
		}
	}
	assert.Equal(t, Edge{From: "var:brand", To: "var:primary", Kind: EdgeAliasedBy, Weight: 2, Label: "Light, Dark"}, alias)
}

func TestAnalyze_ColorMetadata(t *testing.T) {
	g := Analyze(sampleReport())

	for _, n := range g.Nodes {
		switch n.ID {
		case "var:brand":
			assert.Equal(t, "#FF0000", n.Metadata["color"])
			assert.Equal(t, "Light", n.Metadata["mode"])
		case "var:gap":
			assert.Empty(t, n.Metadata["color"])
			assert.Equal(t, "8", n.Metadata["value"])
		}
	}
}

func TestAnalyze_Cycles(t *testing.T) {
	g := Analyze(cyclicReport())

	require.Len(t, g.Stats.AliasCycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, g.Stats.AliasCycles[0])
	assert.Equal(t, 1, g.Stats.ConnectedComponents)
	assert.Equal(t, 1, g.Stats.MaxFanOut)
	assert.Equal(t, 1, g.Stats.MaxFanIn)
}

func TestAnalyze_Nil(t *testing.T) {
	g := Analyze(nil)
	assert.Zero(t, g.Stats.TotalNodes)
	assert.Zero(t, g.Stats.ConnectedComponents)
}

func TestAnalyze_FromScan(t *testing.T) {
	doc := &document.Document{
		Collections: []*document.Collection{{ID: "c", Name: "Theme", Modes: []document.Mode{{ID: "m", Name: "Default"}}}},
		Variables: []*document.Variable{
			{ID: "base", Name: "base", Type: document.TypeColor, CollectionID: "c",
				ValuesByMode: map[string]document.Value{"m": document.RGB(0, 0, 1)}},
			{ID: "accent", Name: "accent", Type: document.TypeColor, CollectionID: "c",
				ValuesByMode: map[string]document.Value{"m": document.AliasValue("base")}},
		},
	}
	report, err := scan.NewService(document.NewMemoryProvider(doc)).Scan(t.Context(), scan.ScanOptions{})
	require.NoError(t, err)

	g := Analyze(report)
	assert.Equal(t, 2, g.Stats.VariableCount)
	assert.Equal(t, 1, g.Stats.AliasEdgeCount)
	assert.ElementsMatch(t, []string{"var:base", "var:accent"}, g.Stats.Unused)
}

func TestExportDOT(t *testing.T) {
	dot := ExportDOT(Analyze(sampleReport()))

	assert.True(t, strings.HasPrefix(dot, "digraph variables {"))
	assert.Contains(t, dot, "subgraph cluster_Primitives")
	assert.Contains(t, dot, "subgraph cluster_Theme")
	assert.Contains(t, dot, `fillcolor="#FF0000"`)
	assert.Contains(t, dot, `"var:brand" -> "var:primary"`)
	assert.Contains(t, dot, `label="Light, Dark"`)
	assert.Contains(t, dot, "style=bold")
	assert.Less(t, strings.Index(dot, "cluster_Primitives"), strings.Index(dot, "cluster_Theme"), "collections are sorted")
}

func TestExportMermaid(t *testing.T) {
	m := ExportMermaid(Analyze(sampleReport()))

	assert.True(t, strings.HasPrefix(m, "graph LR\n"))
	assert.Contains(t, m, `var_brand["color/brand"]`)
	assert.Contains(t, m, `var_gap(["space/gap"])`)
	assert.Contains(t, m, "var_brand -->|Light, Dark| var_primary")
	assert.Contains(t, m, "style var_brand fill:#FF0000")
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(Analyze(sampleReport()))
	require.NoError(t, err)

	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Nodes, 6)
	assert.Equal(t, 1, decoded.Stats.AliasEdgeCount)
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(Analyze(cyclicReport()))

	assert.Contains(t, out, "Variable Network Statistics")
	assert.Contains(t, out, "Variables:   3")
	assert.Contains(t, out, "Alias Cycles: 1")
	assert.Contains(t, out, "Theme: 3 variables")
	assert.NotContains(t, out, "Unused Variables")
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "var_color_brand_1", sanitizeID("var:color/brand-1"))
}
