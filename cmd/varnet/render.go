package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/efebarandurmaz/varnet/internal/netgraph"
	"github.com/efebarandurmaz/varnet/internal/scan"
	"github.com/efebarandurmaz/varnet/internal/tui"
)

// summaryWidth is the terminal width assumed by the summary format.
const summaryWidth = 100

var formats = []string{"json", "graph", "dot", "mermaid", "stats", "summary"}

func validFormat(format string) bool {
	return slices.Contains(formats, format)
}

// render serializes a scan in one of the supported formats.
func render(report *scan.Report, g *netgraph.Graph, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case "graph":
		data, err := netgraph.ExportJSON(g)
		if err != nil {
			return nil, fmt.Errorf("marshal graph: %w", err)
		}
		return append(data, '\n'), nil
	case "dot":
		return []byte(netgraph.ExportDOT(g)), nil
	case "mermaid":
		return []byte(netgraph.ExportMermaid(g)), nil
	case "stats":
		return []byte(netgraph.FormatStats(g)), nil
	case "summary":
		return []byte(tui.RenderReport(report, summaryWidth) + "\n"), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
