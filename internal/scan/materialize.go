package scan

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/format"
)

// Lookup resolves a variable by id.
type Lookup interface {
	VariableByID(ctx context.Context, id string) (*document.Variable, bool, error)
}

// VariableReport is the enriched record produced for one selected variable.
type VariableReport struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Type           document.VariableType `json:"var_type"`
	Collection     string                `json:"collection"`
	CollectionID   string                `json:"collection_id"`
	Modes          []string              `json:"modes"`
	Values         map[string]string     `json:"values"`
	RawValues      map[string]any        `json:"raw_values"`
	References     map[string]*string    `json:"references"`
	HSBA           map[string]string     `json:"values_hsba,omitempty"`
	DirectUsage    int                   `json:"direct_usage"`
	TotalUsage     int                   `json:"total_usage"`
	NodeIDs        []string              `json:"component_ids"`
	UsageBreakdown Breakdown             `json:"usage_breakdown"`
	NodeUsage      []NodeRef             `json:"node_usage_info"`
}

// Materializer resolves per-mode values for selected variables.
type Materializer struct {
	lookup      Lookup
	collections map[string]*document.Collection
}

// NewMaterializer creates a materializer. collections must index every
// collection by id.
func NewMaterializer(lookup Lookup, collections map[string]*document.Collection) *Materializer {
	return &Materializer{lookup: lookup, collections: collections}
}

// Materialize builds the report record for v, whose collection is c.
// Alias slots are resolved one hop: the target's value in its own first mode,
// formatted under v's declared type. A failing lookup aborts with an error; a
// missing target becomes the alias placeholder.
func (m *Materializer) Materialize(ctx context.Context, v *document.Variable, c *document.Collection, usage *UsageIndex) (*VariableReport, error) {
	r := &VariableReport{
		ID:           v.ID,
		Name:         v.Name,
		Type:         v.Type,
		Collection:   c.Name,
		CollectionID: c.ID,
		Modes:        make([]string, 0, len(c.Modes)),
		Values:       make(map[string]string, len(c.Modes)),
		RawValues:    make(map[string]any, len(c.Modes)),
		References:   make(map[string]*string, len(c.Modes)),
	}
	if v.Type == document.TypeColor {
		r.HSBA = make(map[string]string, len(c.Modes))
	}

	for _, mode := range c.Modes {
		r.Modes = append(r.Modes, mode.Name)
		val := v.ValuesByMode[mode.ID]

		if !val.IsAlias() {
			r.References[mode.Name] = nil
			m.record(r, mode.Name, val)
			continue
		}

		target, ok, err := m.lookup.VariableByID(ctx, val.AliasID)
		if err != nil {
			return nil, fmt.Errorf("resolve alias %s of %s: %w", val.AliasID, v.ID, err)
		}
		if !ok {
			r.References[mode.Name] = nil
			r.Values[mode.Name] = format.AliasPlaceholder
			r.RawValues[mode.Name] = format.AliasPlaceholder
			if r.HSBA != nil {
				r.HSBA[mode.Name] = format.AliasPlaceholder
			}
			continue
		}

		targetID := target.ID
		r.References[mode.Name] = &targetID
		resolved, _ := target.FirstModeValue(m.collections[target.CollectionID])
		m.record(r, mode.Name, resolved)
	}

	u := usage.Get(v.ID)
	r.DirectUsage = u.Direct
	r.UsageBreakdown = u.Breakdown
	r.NodeIDs = nonNil(u.NodeIDs)
	r.NodeUsage = u.Nodes
	if r.NodeUsage == nil {
		r.NodeUsage = []NodeRef{}
	}
	return r, nil
}

func (m *Materializer) record(r *VariableReport, mode string, val document.Value) {
	res := format.Format(val, r.Type)
	r.Values[mode] = res.Display
	r.RawValues[mode] = res.Raw
	if r.HSBA == nil {
		return
	}
	switch {
	case val.IsAlias():
		r.HSBA[mode] = format.AliasPlaceholder
	case val.Kind == document.ValueColor:
		r.HSBA[mode] = format.HSBA(val.Color)
	default:
		r.HSBA[mode] = format.NotAvailable
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
