package snapshot

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
	DiffRenamed  DiffType = "renamed"
)

// ReportDiff represents the complete diff between two snapshots.
type ReportDiff struct {
	OldID         string         `json:"old_id"`
	NewID         string         `json:"new_id"`
	OldTag        string         `json:"old_tag,omitempty"`
	NewTag        string         `json:"new_tag,omitempty"`
	BindingsDelta int            `json:"bindings_delta"`
	VariableDiffs []VariableDiff `json:"variable_diffs"`
	Summary       DiffSummary    `json:"summary"`
}

// VariableDiff represents a change to a single variable. Variables are
// matched by id, so a renamed variable keeps its usage history.
type VariableDiff struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	OldName        string   `json:"old_name,omitempty"`
	Type           DiffType `json:"type"`
	OldTotal       int      `json:"old_total"`
	NewTotal       int      `json:"new_total"`
	UsageDelta     int      `json:"usage_delta"`
	ValueChanged   bool     `json:"value_changed,omitempty"`
	AliasesChanged bool     `json:"aliases_changed,omitempty"`
}

// DiffSummary provides aggregate stats about the diff.
type DiffSummary struct {
	Added       int      `json:"added"`
	Removed     int      `json:"removed"`
	Modified    int      `json:"modified"`
	Renamed     int      `json:"renamed"`
	UsageDelta  int      `json:"usage_delta"`
	NewlyUnused []string `json:"newly_unused,omitempty"`
}

// Diff computes the differences between two snapshots.
func Diff(old, new *Snapshot) *ReportDiff {
	d := &ReportDiff{
		OldID:         old.ID,
		NewID:         new.ID,
		OldTag:        old.Tag,
		NewTag:        new.Tag,
		BindingsDelta: new.Stats.Bindings - old.Stats.Bindings,
	}
	d.VariableDiffs = diffVariables(old.Variables, new.Variables)
	d.Summary = computeSummary(d)
	return d
}

func diffVariables(oldVars, newVars []VariableEntry) []VariableDiff {
	oldMap := make(map[string]VariableEntry, len(oldVars))
	for _, v := range oldVars {
		oldMap[v.ID] = v
	}
	newMap := make(map[string]VariableEntry, len(newVars))
	for _, v := range newVars {
		newMap[v.ID] = v
	}

	var diffs []VariableDiff

	for id, o := range oldMap {
		n, ok := newMap[id]
		if !ok {
			diffs = append(diffs, VariableDiff{
				ID:         id,
				Name:       o.Name,
				Type:       DiffRemoved,
				OldTotal:   o.TotalUsage,
				UsageDelta: -o.TotalUsage,
			})
			continue
		}

		vd := VariableDiff{
			ID:             id,
			Name:           n.Name,
			OldTotal:       o.TotalUsage,
			NewTotal:       n.TotalUsage,
			UsageDelta:     n.TotalUsage - o.TotalUsage,
			ValueChanged:   o.ValueHash != n.ValueHash,
			AliasesChanged: !slices.Equal(o.AliasOf, n.AliasOf),
		}
		switch {
		case o.Name != n.Name:
			vd.Type = DiffRenamed
			vd.OldName = o.Name
		case vd.UsageDelta != 0 || vd.ValueChanged || vd.AliasesChanged || o.DirectUsage != n.DirectUsage:
			vd.Type = DiffModified
		default:
			continue
		}
		diffs = append(diffs, vd)
	}

	for id, n := range newMap {
		if _, ok := oldMap[id]; !ok {
			diffs = append(diffs, VariableDiff{
				ID:         id,
				Name:       n.Name,
				Type:       DiffAdded,
				NewTotal:   n.TotalUsage,
				UsageDelta: n.TotalUsage,
			})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Name != diffs[j].Name {
			return diffs[i].Name < diffs[j].Name
		}
		return diffs[i].ID < diffs[j].ID
	})

	return diffs
}

func computeSummary(d *ReportDiff) DiffSummary {
	var s DiffSummary
	for _, vd := range d.VariableDiffs {
		switch vd.Type {
		case DiffAdded:
			s.Added++
		case DiffRemoved:
			s.Removed++
		case DiffModified:
			s.Modified++
		case DiffRenamed:
			s.Renamed++
		}
		s.UsageDelta += vd.UsageDelta
		if vd.Type != DiffRemoved && vd.NewTotal == 0 && (vd.OldTotal > 0 || vd.Type == DiffAdded) {
			s.NewlyUnused = append(s.NewlyUnused, vd.Name)
		}
	}
	return s
}

// FormatDiff returns a human-readable string representation of the diff.
func FormatDiff(d *ReportDiff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Diff: %s → %s\n", d.OldID, d.NewID))
	if d.OldTag != "" || d.NewTag != "" {
		sb.WriteString(fmt.Sprintf("Tags: %s → %s\n", d.OldTag, d.NewTag))
	}
	sb.WriteString(fmt.Sprintf("Bindings: %+d\n\n", d.BindingsDelta))

	sb.WriteString(fmt.Sprintf("Variables: +%d -%d ~%d renamed %d\n",
		d.Summary.Added, d.Summary.Removed, d.Summary.Modified, d.Summary.Renamed))
	sb.WriteString(fmt.Sprintf("Usage: %+d\n\n", d.Summary.UsageDelta))

	for _, vd := range d.VariableDiffs {
		icon := "~"
		switch vd.Type {
		case DiffAdded:
			icon = "+"
		case DiffRemoved:
			icon = "-"
		case DiffRenamed:
			icon = ">"
		}
		sb.WriteString(fmt.Sprintf("  %s %s", icon, vd.Name))
		if vd.Type == DiffRenamed {
			sb.WriteString(fmt.Sprintf(" (was %s)", vd.OldName))
		}
		if vd.UsageDelta != 0 {
			sb.WriteString(fmt.Sprintf(" usage %d → %d", vd.OldTotal, vd.NewTotal))
		}
		var notes []string
		if vd.ValueChanged {
			notes = append(notes, "value")
		}
		if vd.AliasesChanged {
			notes = append(notes, "aliases")
		}
		if len(notes) > 0 {
			sb.WriteString(fmt.Sprintf(" [%s changed]", strings.Join(notes, ", ")))
		}
		sb.WriteString("\n")
	}

	if len(d.Summary.NewlyUnused) > 0 {
		sb.WriteString("\nNewly unused:\n")
		for _, name := range d.Summary.NewlyUnused {
			sb.WriteString(fmt.Sprintf("  %s\n", name))
		}
	}

	return sb.String()
}
