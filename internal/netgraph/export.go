package netgraph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ExportDOT generates a Graphviz DOT representation of the network. Colour
// variables are filled with their first-mode value.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph variables {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, col := range groupByCollection(g) {
		b.WriteString(fmt.Sprintf("  subgraph cluster_%s {\n", sanitizeID(col.name)))
		b.WriteString(fmt.Sprintf("    label=%q;\n", col.name))
		b.WriteString("    style=dashed;\n")
		b.WriteString("    color=\"#58a6ff\";\n")
		for _, n := range col.nodes {
			b.WriteString(fmt.Sprintf("    %q [label=%q shape=%s style=filled fillcolor=\"%s\"];\n",
				n.ID, dotLabel(n), nodeShape(n.Type), nodeColor(n)))
		}
		b.WriteString("  }\n\n")
	}

	for _, e := range g.Edges {
		if e.Kind != EdgeAliasedBy {
			continue
		}
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf(" label=%q", e.Label)
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [style=%s color=\"#f0883e\" penwidth=%d%s];\n",
			e.From, e.To, edgeStyle(e), e.Weight, label))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the network.
func ExportMermaid(g *Graph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, col := range groupByCollection(g) {
		b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", sanitizeID(col.name), escapeMermaid(col.name)))
		for _, n := range col.nodes {
			b.WriteString(fmt.Sprintf("    %s%s\n", sanitizeID(n.ID), mermaidNodeShape(n)))
		}
		b.WriteString("  end\n")
	}

	for _, e := range g.Edges {
		if e.Kind != EdgeAliasedBy {
			continue
		}
		label := ""
		if e.Label != "" {
			label = "|" + escapeMermaid(e.Label) + "|"
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", sanitizeID(e.From), label, sanitizeID(e.To)))
	}

	for _, col := range groupByCollection(g) {
		for _, n := range col.nodes {
			if c := n.Metadata["color"]; c != "" {
				b.WriteString(fmt.Sprintf("  style %s fill:%s\n", sanitizeID(n.ID), c))
			}
		}
	}

	return b.String()
}

// ExportJSON serializes the network to JSON.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FormatStats returns a human-readable summary of network statistics.
func FormatStats(g *Graph) string {
	var b strings.Builder
	b.WriteString("Variable Network Statistics\n")
	b.WriteString("===========================\n\n")
	b.WriteString(fmt.Sprintf("Nodes:        %d total\n", g.Stats.TotalNodes))
	b.WriteString(fmt.Sprintf("  Collections: %d\n", g.Stats.CollectionCount))
	b.WriteString(fmt.Sprintf("  Variables:   %d\n", g.Stats.VariableCount))
	for _, t := range sortedKeys(g.Stats.TypeCounts) {
		b.WriteString(fmt.Sprintf("    %-9s  %d\n", t+":", g.Stats.TypeCounts[t]))
	}
	b.WriteString(fmt.Sprintf("Alias Edges:  %d\n", g.Stats.AliasEdgeCount))
	b.WriteString(fmt.Sprintf("Max Fan-Out:  %d\n", g.Stats.MaxFanOut))
	b.WriteString(fmt.Sprintf("Max Fan-In:   %d\n", g.Stats.MaxFanIn))
	if g.Stats.HotspotNode != "" {
		b.WriteString(fmt.Sprintf("Hotspot:      %s (%d uses)\n", strings.TrimPrefix(g.Stats.HotspotNode, variablePrefix), g.Stats.HotspotUsage))
	}
	b.WriteString(fmt.Sprintf("Clusters:     %d\n", g.Stats.ConnectedComponents))

	if len(g.Stats.AliasCycles) > 0 {
		b.WriteString(fmt.Sprintf("\nAlias Cycles: %d\n", len(g.Stats.AliasCycles)))
		for i, cycle := range g.Stats.AliasCycles {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(cycle, " -> ")))
		}
	}

	if len(g.Stats.Unused) > 0 {
		b.WriteString(fmt.Sprintf("\nUnused Variables: %d\n", len(g.Stats.Unused)))
		for _, id := range g.Stats.Unused {
			b.WriteString(fmt.Sprintf("  %s\n", strings.TrimPrefix(id, variablePrefix)))
		}
	}

	if len(g.Stats.CollectionSizes) > 0 {
		b.WriteString("\nCollections:\n")
		for _, name := range sortedKeys(g.Stats.CollectionSizes) {
			b.WriteString(fmt.Sprintf("  %s: %d variables\n", name, g.Stats.CollectionSizes[name]))
		}
	}

	return b.String()
}

type collectionGroup struct {
	name  string
	nodes []Node
}

// groupByCollection returns variable nodes grouped by collection, in
// collection name order with node order preserved.
func groupByCollection(g *Graph) []collectionGroup {
	byName := make(map[string][]Node)
	for _, n := range g.Nodes {
		if n.Kind == NodeVariable {
			byName[n.Collection] = append(byName[n.Collection], n)
		}
	}
	groups := make([]collectionGroup, 0, len(byName))
	for _, name := range sortedKeys(byName) {
		groups = append(groups, collectionGroup{name: name, nodes: byName[name]})
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

func dotLabel(n Node) string {
	return fmt.Sprintf("%s\n%d / %d", n.Name, n.DirectUsage, n.TotalUsage)
}

func nodeShape(varType string) string {
	switch varType {
	case "COLOR":
		return "box"
	case "FLOAT":
		return "ellipse"
	case "STRING":
		return "note"
	case "BOOLEAN":
		return "diamond"
	default:
		return "box"
	}
}

func nodeColor(n Node) string {
	if c := n.Metadata["color"]; c != "" {
		return c
	}
	switch n.Type {
	case "FLOAT":
		return "#238636"
	case "STRING":
		return "#8957e5"
	case "BOOLEAN":
		return "#d29922"
	default:
		return "#30363d"
	}
}

func edgeStyle(e Edge) string {
	if e.Weight > 1 {
		return "bold"
	}
	return "solid"
}

func mermaidNodeShape(n Node) string {
	name := escapeMermaid(n.Name)
	switch n.Type {
	case "FLOAT":
		return fmt.Sprintf("([\"%s\"])", name)
	case "STRING":
		return fmt.Sprintf("[/\"%s\"/]", name)
	case "BOOLEAN":
		return fmt.Sprintf("{\"%s\"}", name)
	default:
		return fmt.Sprintf("[\"%s\"]", name)
	}
}
