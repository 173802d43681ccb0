package scan

import (
	"slices"

	"github.com/efebarandurmaz/varnet/internal/document"
)

// Edge records that To aliases From in the given mode.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Mode string `json:"mode"`
}

// AliasGraph is the directed alias graph over the selected variables. Edges
// point from the referenced variable to the variable that references it.
type AliasGraph struct {
	Edges []Edge

	dependents map[string][]string
	linked     map[[2]string]bool
}

func newAliasGraph() *AliasGraph {
	return &AliasGraph{
		dependents: make(map[string][]string),
		linked:     make(map[[2]string]bool),
	}
}

func (g *AliasGraph) add(e Edge) {
	g.Edges = append(g.Edges, e)
	g.link(e.From, e.To)
}

func (g *AliasGraph) link(from, to string) {
	key := [2]string{from, to}
	if !g.linked[key] {
		g.linked[key] = true
		g.dependents[from] = append(g.dependents[from], to)
	}
}

// Dependents returns the distinct variables that alias id directly, in
// first-seen order.
func (g *AliasGraph) Dependents(id string) []string {
	if g == nil {
		return nil
	}
	return g.dependents[id]
}

// BuildAliasGraph emits one edge per (variable, mode) whose value aliases
// another selected variable. Modes follow the collection's declared order.
// Variables without a known collection contribute no edges, but their aliases
// still count them as dependents for TotalUsage.
func BuildAliasGraph(vars []*document.Variable, collections map[string]*document.Collection, selected IDSet) *AliasGraph {
	g := newAliasGraph()
	for _, v := range vars {
		if !selected.Has(v.ID) {
			continue
		}
		c, ok := collections[v.CollectionID]
		if !ok {
			modes := make([]string, 0, len(v.ValuesByMode))
			for id := range v.ValuesByMode {
				modes = append(modes, id)
			}
			slices.Sort(modes)
			for _, id := range modes {
				if val := v.ValuesByMode[id]; val.IsAlias() && selected.Has(val.AliasID) {
					g.link(val.AliasID, v.ID)
				}
			}
			continue
		}
		for _, mode := range c.Modes {
			val, ok := v.ValuesByMode[mode.ID]
			if !ok || !val.IsAlias() {
				continue
			}
			if !selected.Has(val.AliasID) {
				continue
			}
			g.add(Edge{From: val.AliasID, To: v.ID, Mode: mode.Name})
		}
	}
	return g
}

// TotalUsage returns the direct usage of id plus the usage of every variable
// that aliases it, directly or through other aliases. Each variable counts
// once per query even when reachable along several paths, and cycles
// terminate because a visited variable contributes nothing on re-entry.
func TotalUsage(id string, usage *UsageIndex, g *AliasGraph) int {
	return totalUsage(id, usage, g, make(map[string]bool))
}

func totalUsage(id string, usage *UsageIndex, g *AliasGraph, visited map[string]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true

	total := usage.Direct(id)
	for _, dep := range g.Dependents(id) {
		total += totalUsage(dep, usage, g, visited)
	}
	return total
}
