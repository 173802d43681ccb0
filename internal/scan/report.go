package scan

import (
	"time"

	"github.com/efebarandurmaz/varnet/internal/document"
)

// Report is the result of a single scan. It is rebuilt from scratch on every
// scan and shares no state with earlier ones.
type Report struct {
	Variables     []*VariableReport `json:"variables"`
	Relationships []Edge            `json:"relationships"`
	TypeCounts    TypeCounts        `json:"typeCounts"`
	Stats         ScanStats         `json:"stats"`
}

// ScanStats summarizes the work done by a scan.
type ScanStats struct {
	SelectedTypes     []document.VariableType `json:"selected_types"`
	VariablesSelected int                     `json:"variables_selected"`
	NodesVisited      int                     `json:"nodes_visited"`
	Bindings          int                     `json:"bindings"`
	AliasEdges        int                     `json:"alias_edges"`
	Duration          time.Duration           `json:"duration_ns"`
}

// Variable returns the record for id, or nil when id was not selected.
func (r *Report) Variable(id string) *VariableReport {
	if r == nil {
		return nil
	}
	for _, v := range r.Variables {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// FindByName returns the first record whose name matches exactly.
func (r *Report) FindByName(name string) *VariableReport {
	if r == nil {
		return nil
	}
	for _, v := range r.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}
