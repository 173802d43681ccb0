package qualitygate

import (
	"fmt"
	"strings"
)

// GateConfig defines the configuration for quality gates. A zero limit
// disables the corresponding gate.
type GateConfig struct {
	Cycles         bool   `mapstructure:"cycles" json:"cycles"`
	CyclesSeverity string `mapstructure:"cycles_severity" json:"cycles_severity"`

	MaxUnusedRatio float64 `mapstructure:"max_unused_ratio" json:"max_unused_ratio"`
	UnusedSeverity string  `mapstructure:"unused_severity" json:"unused_severity"`

	MaxFanOut      int    `mapstructure:"max_fan_out" json:"max_fan_out"`
	FanOutSeverity string `mapstructure:"fan_out_severity" json:"fan_out_severity"`

	MaxAliasDepth int    `mapstructure:"max_alias_depth" json:"max_alias_depth"`
	DepthSeverity string `mapstructure:"depth_severity" json:"depth_severity"`
}

// DefaultConfig returns the gates run by a plain check.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Cycles:         true,
		CyclesSeverity: "critical",
		MaxUnusedRatio: 0.25,
		UnusedSeverity: "advisory",
		MaxFanOut:      0,
		FanOutSeverity: "advisory",
		MaxAliasDepth:  3,
		DepthSeverity:  "required",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch strings.ToLower(s) {
	case "critical":
		return SeverityCritical
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()
	if cfg.Cycles {
		p.AddGate(NewCycleGate(parseSeverity(cfg.CyclesSeverity)))
	}
	if cfg.MaxUnusedRatio > 0 {
		p.AddGate(NewUnusedGate(cfg.MaxUnusedRatio, parseSeverity(cfg.UnusedSeverity)))
	}
	if cfg.MaxFanOut > 0 {
		p.AddGate(NewFanOutGate(cfg.MaxFanOut, parseSeverity(cfg.FanOutSeverity)))
	}
	if cfg.MaxAliasDepth > 0 {
		p.AddGate(NewDepthGate(cfg.MaxAliasDepth, parseSeverity(cfg.DepthSeverity)))
	}
	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var sb strings.Builder
	sb.WriteString("╔══════════════════════════════════════════╗\n")
	sb.WriteString("║        Variable Network Check            ║\n")
	sb.WriteString("╠══════════════════════════════════════════╣\n")

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}
		fmt.Fprintf(&sb, "║ %s %-14s %-10s %s\n", icon, gr.Name, "["+strings.ToUpper(string(gr.Severity))+"]", gr.Message)
		for _, d := range gr.Details {
			fmt.Fprintf(&sb, "║   → %s\n", d)
		}
	}

	sb.WriteString("╠══════════════════════════════════════════╣\n")
	status := "PASSED"
	if result.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "║ Result: %s (%s)\n", status, result.Summary)
	sb.WriteString("╚══════════════════════════════════════════╝\n")
	return sb.String()
}
