package graph

import (
	"context"

	"github.com/efebarandurmaz/varnet/internal/scan"
)

// Repository stores scan reports as a property graph of collections,
// variables and alias relationships.
type Repository interface {
	// StoreReport merges every selected variable and alias edge of r.
	StoreReport(ctx context.Context, r *scan.Report) error
	// QueryDependents returns the ids of variables that alias the given one.
	QueryDependents(ctx context.Context, variableID string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// Statement is one parameterized Cypher statement.
type Statement struct {
	Query  string
	Params map[string]any
}

const (
	mergeCollection = "MERGE (c:Collection {id: $id}) SET c.name = $name"
	mergeVariable   = "MERGE (v:Variable {id: $id}) " +
		"SET v.name = $name, v.type = $type, v.value = $value, " +
		"v.direct_usage = $direct, v.total_usage = $total " +
		"WITH v MATCH (c:Collection {id: $collection}) " +
		"MERGE (c)-[:CONTAINS]->(v)"
	mergeAlias = "MATCH (d:Variable {id: $dependent}) " +
		"MATCH (t:Variable {id: $target}) " +
		"MERGE (d)-[:ALIASES {mode: $mode}]->(t)"
)

// Statements translates r into the ordered statements that store it:
// collections first, then variables, then alias edges.
func Statements(r *scan.Report) []Statement {
	if r == nil {
		return nil
	}
	var out []Statement
	seen := make(map[string]bool)
	for _, v := range r.Variables {
		if seen[v.CollectionID] {
			continue
		}
		seen[v.CollectionID] = true
		out = append(out, Statement{
			Query:  mergeCollection,
			Params: map[string]any{"id": v.CollectionID, "name": v.Collection},
		})
	}
	for _, v := range r.Variables {
		value := ""
		if len(v.Modes) > 0 {
			value = v.Values[v.Modes[0]]
		}
		out = append(out, Statement{
			Query: mergeVariable,
			Params: map[string]any{
				"id":         v.ID,
				"name":       v.Name,
				"type":       string(v.Type),
				"value":      value,
				"direct":     int64(v.DirectUsage),
				"total":      int64(v.TotalUsage),
				"collection": v.CollectionID,
			},
		})
	}
	for _, e := range r.Relationships {
		out = append(out, Statement{
			Query:  mergeAlias,
			Params: map[string]any{"dependent": e.To, "target": e.From, "mode": e.Mode},
		})
	}
	return out
}
