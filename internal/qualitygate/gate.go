// Package qualitygate evaluates a scan report against configurable limits so
// that a design system can fail a build on alias cycles or unused variables.
package qualitygate

import (
	"fmt"
	"time"

	"github.com/efebarandurmaz/varnet/internal/netgraph"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// GateStatus represents the result of a quality gate check.
type GateStatus string

const (
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateSkipped GateStatus = "skipped"
	GateWarning GateStatus = "warning"
)

// GateSeverity indicates how critical a gate failure is.
type GateSeverity string

const (
	SeverityCritical GateSeverity = "critical" // remaining gates are skipped
	SeverityRequired GateSeverity = "required" // fails the run
	SeverityAdvisory GateSeverity = "advisory" // reported as a warning
)

// GateResult captures the outcome of a single gate evaluation.
type GateResult struct {
	Name        string        `json:"name"`
	Status      GateStatus    `json:"status"`
	Severity    GateSeverity  `json:"severity"`
	Score       float64       `json:"score"`     // 0.0-1.0 normalized
	Threshold   float64       `json:"threshold"` // limit the gate compared against
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is the interface all quality gates must implement.
type Gate interface {
	Name() string
	Severity() GateSeverity
	Evaluate(ctx *EvalContext) (*GateResult, error)
}

// EvalContext is the scan under evaluation.
type EvalContext struct {
	Report *scan.Report
	Graph  *netgraph.Graph

	names map[string]string
}

// NewEvalContext analyzes report once for all gates.
func NewEvalContext(report *scan.Report) *EvalContext {
	ctx := &EvalContext{Report: report, Graph: netgraph.Analyze(report), names: make(map[string]string)}
	if report != nil {
		for _, v := range report.Variables {
			ctx.names[v.ID] = v.Name
		}
	}
	return ctx
}

// Name returns the variable name for id, or id itself when unknown.
func (c *EvalContext) Name(id string) string {
	if n, ok := c.names[id]; ok {
		return n
	}
	return id
}

// PipelineResult captures the complete gate pipeline evaluation.
type PipelineResult struct {
	Status       GateStatus    `json:"status"` // failed if any critical or required gate failed
	Gates        []GateResult  `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	WarningCount int           `json:"warning_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Failed reports whether the run should block.
func (r *PipelineResult) Failed() bool { return r.Status == GateFailed }

// Pipeline runs gates in order.
type Pipeline struct {
	gates []Gate
}

func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

func (p *Pipeline) AddGate(g Gate) {
	p.gates = append(p.gates, g)
}

// Len returns the number of configured gates.
func (p *Pipeline) Len() int { return len(p.gates) }

// Run evaluates all gates. A failed critical gate skips the rest; a failed
// advisory gate is downgraded to a warning.
func (p *Pipeline) Run(ctx *EvalContext) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{Status: GatePassed, EvaluatedAt: start}

	aborted := false
	for _, gate := range p.gates {
		if aborted {
			result.add(GateResult{
				Name:        gate.Name(),
				Status:      GateSkipped,
				Severity:    gate.Severity(),
				Message:     "Skipped after critical failure",
				EvaluatedAt: time.Now(),
			})
			continue
		}

		gateStart := time.Now()
		gr, err := gate.Evaluate(ctx)
		if err != nil {
			gr = &GateResult{
				Name:     gate.Name(),
				Status:   GateFailed,
				Severity: gate.Severity(),
				Message:  fmt.Sprintf("Gate evaluation error: %v", err),
			}
		}
		if gr.Status == GateFailed && gr.Severity == SeverityAdvisory {
			gr.Status = GateWarning
		}
		gr.Duration = time.Since(gateStart)
		gr.EvaluatedAt = gateStart

		result.add(*gr)
		if gr.Status == GateFailed {
			result.Status = GateFailed
			aborted = gr.Severity == SeverityCritical
		}
	}

	result.Duration = time.Since(start)
	result.Summary = fmt.Sprintf("%d passed, %d failed, %d warnings, %d skipped [%s]",
		result.PassedCount, result.FailedCount, result.WarningCount, result.SkippedCount, result.Status)
	return result
}

func (r *PipelineResult) add(gr GateResult) {
	r.Gates = append(r.Gates, gr)
	switch gr.Status {
	case GatePassed:
		r.PassedCount++
	case GateFailed:
		r.FailedCount++
	case GateWarning:
		r.WarningCount++
	case GateSkipped:
		r.SkippedCount++
	}
}
