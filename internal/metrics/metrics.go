package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/efebarandurmaz/varnet/internal/netgraph"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// RunMetrics collects statistics for a single CLI scan run.
type RunMetrics struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	Document   string         `json:"document"`
	Scan       ScanMetrics    `json:"scan"`
	Network    NetworkMetrics `json:"network"`
	Output     OutputMetrics  `json:"output"`
	Stages     []StageMetrics `json:"stages"`
	Sinks      []SinkMetrics  `json:"sinks,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
}

type ScanMetrics struct {
	Types        []string       `json:"types"`
	TypeCounts   map[string]int `json:"type_counts"`
	Variables    int            `json:"variables"`
	NodesVisited int            `json:"nodes_visited"`
	Bindings     int            `json:"bindings"`
	AliasEdges   int            `json:"alias_edges"`
	DirectUsage  int            `json:"direct_usage"`
	UnusedCount  int            `json:"unused_count"`
	ScanDuration time.Duration  `json:"scan_duration_ms"`
}

type NetworkMetrics struct {
	Collections  int    `json:"collections"`
	Components   int    `json:"components"`
	MaxFanOut    int    `json:"max_fan_out"`
	AliasCycles  int    `json:"alias_cycles"`
	Hotspot      string `json:"hotspot,omitempty"`
	HotspotUsage int    `json:"hotspot_usage"`
}

type OutputMetrics struct {
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Errors   int           `json:"errors"`
}

type SinkMetrics struct {
	Name     string        `json:"name"`
	Written  int           `json:"written"`
	Duration time.Duration `json:"duration_ms"`
	Error    string        `json:"error,omitempty"`
}

// New starts tracking a run against the given document.
func New(document string) *RunMetrics {
	return &RunMetrics{StartedAt: time.Now(), Document: document}
}

// CollectScan computes scan-side metrics from a report.
func (m *RunMetrics) CollectScan(r *scan.Report) {
	m.Scan.Types = make([]string, len(r.Stats.SelectedTypes))
	for i, t := range r.Stats.SelectedTypes {
		m.Scan.Types[i] = string(t)
	}
	m.Scan.TypeCounts = make(map[string]int, len(r.TypeCounts))
	for t, n := range r.TypeCounts {
		m.Scan.TypeCounts[string(t)] = n
	}
	m.Scan.Variables = len(r.Variables)
	m.Scan.NodesVisited = r.Stats.NodesVisited
	m.Scan.Bindings = r.Stats.Bindings
	m.Scan.AliasEdges = r.Stats.AliasEdges
	m.Scan.ScanDuration = r.Stats.Duration

	m.Scan.DirectUsage, m.Scan.UnusedCount = 0, 0
	for _, v := range r.Variables {
		m.Scan.DirectUsage += v.DirectUsage
		if v.TotalUsage == 0 {
			m.Scan.UnusedCount++
		}
	}
}

// CollectNetwork records the shape of the variable network.
func (m *RunMetrics) CollectNetwork(g *netgraph.Graph) {
	m.Network = NetworkMetrics{
		Collections:  g.Stats.CollectionCount,
		Components:   g.Stats.ConnectedComponents,
		MaxFanOut:    g.Stats.MaxFanOut,
		AliasCycles:  len(g.Stats.AliasCycles),
		Hotspot:      g.Stats.HotspotNode,
		HotspotUsage: g.Stats.HotspotUsage,
	}
}

// CollectOutput records the rendered output size.
func (m *RunMetrics) CollectOutput(format string, size int) {
	m.Output = OutputMetrics{Format: format, Bytes: size}
}

// AddStage records a single stage's timing and status.
func (m *RunMetrics) AddStage(name string, d time.Duration, errCount int) {
	m.Stages = append(m.Stages, StageMetrics{
		Name:     name,
		Duration: d,
		Errors:   errCount,
	})
}

// AddPublish records every sink outcome.
func (m *RunMetrics) AddPublish(results []publish.Result) {
	for _, r := range results {
		m.Sinks = append(m.Sinks, SinkMetrics{
			Name:     r.Sink,
			Written:  r.Written,
			Duration: r.Duration,
			Error:    r.Error,
		})
	}
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║          VARNET SCAN REPORT          ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Scan:        %-23s║\n", m.Scan.ScanDuration.Round(time.Microsecond))
	fmt.Fprintf(w, "║ Output:      %-23s║\n", fmt.Sprintf("%s, %s", m.Output.Format, formatBytes(m.Output.Bytes)))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ DOCUMENT (%s)\n", m.Document)
	for _, t := range sortedKeys(m.Scan.TypeCounts) {
		fmt.Fprintf(w, "║   %-12s %d\n", t+":", m.Scan.TypeCounts[t])
	}
	fmt.Fprintf(w, "║   Nodes:       %d\n", m.Scan.NodesVisited)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ SCAN %v\n", m.Scan.Types)
	fmt.Fprintf(w, "║   Variables:   %d\n", m.Scan.Variables)
	fmt.Fprintf(w, "║   Bindings:    %d\n", m.Scan.Bindings)
	fmt.Fprintf(w, "║   Alias Edges: %d\n", m.Scan.AliasEdges)
	fmt.Fprintf(w, "║   Unused:      %d\n", m.Scan.UnusedCount)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ NETWORK\n")
	fmt.Fprintf(w, "║   Collections: %d\n", m.Network.Collections)
	fmt.Fprintf(w, "║   Clusters:    %d\n", m.Network.Components)
	fmt.Fprintf(w, "║   Max Fan-out: %d\n", m.Network.MaxFanOut)
	fmt.Fprintf(w, "║   Cycles:      %d\n", m.Network.AliasCycles)
	if m.Network.Hotspot != "" {
		fmt.Fprintf(w, "║   Hotspot:     %s (%d)\n", m.Network.Hotspot, m.Network.HotspotUsage)
	}
	if len(m.Stages) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ STAGES\n")
		for _, s := range m.Stages {
			status := "OK"
			if s.Errors > 0 {
				status = fmt.Sprintf("%d errors", s.Errors)
			}
			fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
		}
	}
	if len(m.Sinks) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ SINKS\n")
		for _, s := range m.Sinks {
			status := fmt.Sprintf("%d written", s.Written)
			if s.Error != "" {
				status = "failed: " + s.Error
			}
			fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatBytes(b int) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
