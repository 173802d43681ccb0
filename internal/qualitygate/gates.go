package qualitygate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/efebarandurmaz/varnet/internal/netgraph"
)

// CycleGate fails when variables alias each other in a loop.
type CycleGate struct {
	severity GateSeverity
}

func NewCycleGate(severity GateSeverity) *CycleGate {
	return &CycleGate{severity: severity}
}

func (g *CycleGate) Name() string           { return "alias_cycles" }
func (g *CycleGate) Severity() GateSeverity { return g.severity }
func (g *CycleGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}
	cycles := ctx.Graph.Stats.AliasCycles
	if len(cycles) == 0 {
		r.Status = GatePassed
		r.Score = 1
		r.Message = "No alias cycles"
		return r, nil
	}

	r.Status = GateFailed
	r.Message = fmt.Sprintf("%d alias cycle(s)", len(cycles))
	for _, cycle := range cycles {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = ctx.Name(id)
		}
		r.Details = append(r.Details, strings.Join(names, " → "))
	}
	return r, nil
}

// UnusedGate limits the share of selected variables that nothing uses,
// directly or through an alias.
type UnusedGate struct {
	MaxRatio float64
	severity GateSeverity
}

func NewUnusedGate(maxRatio float64, severity GateSeverity) *UnusedGate {
	return &UnusedGate{MaxRatio: maxRatio, severity: severity}
}

func (g *UnusedGate) Name() string           { return "unused" }
func (g *UnusedGate) Severity() GateSeverity { return g.severity }
func (g *UnusedGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: g.MaxRatio}

	total := len(ctx.Report.Variables)
	if total == 0 {
		r.Status = GateSkipped
		r.Message = "No variables selected"
		return r, nil
	}

	var unused []string
	for _, v := range ctx.Report.Variables {
		if v.TotalUsage == 0 {
			unused = append(unused, v.Name)
		}
	}
	sort.Strings(unused)
	ratio := float64(len(unused)) / float64(total)
	r.Score = 1 - ratio
	r.Details = unused

	if ratio <= g.MaxRatio {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d/%d unused (%.0f%%) within %.0f%%", len(unused), total, ratio*100, g.MaxRatio*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d/%d unused (%.0f%%) exceeds %.0f%%", len(unused), total, ratio*100, g.MaxRatio*100)
	}
	return r, nil
}

// FanOutGate limits how many variables may alias a single variable.
type FanOutGate struct {
	MaxFanOut int
	severity  GateSeverity
}

func NewFanOutGate(maxFanOut int, severity GateSeverity) *FanOutGate {
	return &FanOutGate{MaxFanOut: maxFanOut, severity: severity}
}

func (g *FanOutGate) Name() string           { return "fan_out" }
func (g *FanOutGate) Severity() GateSeverity { return g.severity }
func (g *FanOutGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: float64(g.MaxFanOut)}

	fanOut := make(map[string]int)
	for _, e := range ctx.Graph.Edges {
		if e.Kind == netgraph.EdgeAliasedBy {
			fanOut[e.From]++
		}
	}
	var over []string
	for node, n := range fanOut {
		if n > g.MaxFanOut {
			over = append(over, fmt.Sprintf("%s aliased by %d", ctx.Name(strings.TrimPrefix(node, "var:")), n))
		}
	}
	sort.Strings(over)

	worst := ctx.Graph.Stats.MaxFanOut
	if len(over) == 0 {
		r.Status = GatePassed
		r.Score = 1
		r.Message = fmt.Sprintf("Max fan-out %d within %d", worst, g.MaxFanOut)
		return r, nil
	}
	r.Status = GateFailed
	r.Score = float64(g.MaxFanOut) / float64(worst)
	r.Message = fmt.Sprintf("Max fan-out %d exceeds %d", worst, g.MaxFanOut)
	r.Details = over
	return r, nil
}

// DepthGate limits the length of alias chains. A variable aliasing a
// concrete value has depth 0, one aliasing that has depth 1, and so on.
type DepthGate struct {
	MaxDepth int
	severity GateSeverity
}

func NewDepthGate(maxDepth int, severity GateSeverity) *DepthGate {
	return &DepthGate{MaxDepth: maxDepth, severity: severity}
}

func (g *DepthGate) Name() string           { return "alias_depth" }
func (g *DepthGate) Severity() GateSeverity { return g.severity }
func (g *DepthGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: float64(g.MaxDepth)}

	// targets[x] holds the variables x aliases.
	targets := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, e := range ctx.Report.Relationships {
		key := [2]string{e.To, e.From}
		if !seen[key] {
			seen[key] = true
			targets[e.To] = append(targets[e.To], e.From)
		}
	}

	memo := make(map[string]int)
	onPath := make(map[string]bool)
	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := memo[id]; ok {
			return d
		}
		if onPath[id] {
			return 0 // cycles are reported by CycleGate
		}
		onPath[id] = true
		d := 0
		for _, t := range targets[id] {
			d = max(d, depth(t)+1)
		}
		onPath[id] = false
		memo[id] = d
		return d
	}

	worst := 0
	var over []string
	for _, v := range ctx.Report.Variables {
		d := depth(v.ID)
		worst = max(worst, d)
		if d > g.MaxDepth {
			over = append(over, fmt.Sprintf("%s depth %d", v.Name, d))
		}
	}
	sort.Strings(over)

	if len(over) == 0 {
		r.Status = GatePassed
		r.Score = 1
		r.Message = fmt.Sprintf("Deepest alias chain %d within %d", worst, g.MaxDepth)
		return r, nil
	}
	r.Status = GateFailed
	r.Score = float64(g.MaxDepth) / float64(worst)
	r.Message = fmt.Sprintf("Deepest alias chain %d exceeds %d", worst, g.MaxDepth)
	r.Details = over
	return r, nil
}
