package netgraph

import (
	"sort"
	"strings"

	"github.com/efebarandurmaz/varnet/internal/scan"
)

const (
	collectionPrefix = "col:"
	variablePrefix   = "var:"
)

// Analyze builds the variable network of a scan report.
func Analyze(r *scan.Report) *Graph {
	g := &Graph{}
	if r == nil {
		g.computeStats()
		return g
	}

	nodeMap := make(map[string]bool)

	// 1. Collection and variable nodes + contains edges
	for _, v := range r.Variables {
		colID := collectionPrefix + v.CollectionID
		if !nodeMap[colID] {
			g.Nodes = append(g.Nodes, Node{
				ID:         colID,
				Name:       v.Collection,
				Kind:       NodeCollection,
				Collection: v.Collection,
			})
			nodeMap[colID] = true
		}

		varID := variablePrefix + v.ID
		if nodeMap[varID] {
			continue
		}
		n := Node{
			ID:          varID,
			Name:        v.Name,
			Kind:        NodeVariable,
			Collection:  v.Collection,
			Type:        string(v.Type),
			DirectUsage: v.DirectUsage,
			TotalUsage:  v.TotalUsage,
		}
		if len(v.Modes) > 0 {
			first := v.Values[v.Modes[0]]
			n.Metadata = map[string]string{"mode": v.Modes[0], "value": first}
			if strings.HasPrefix(first, "#") {
				n.Metadata["color"] = first
			}
		}
		g.Nodes = append(g.Nodes, n)
		nodeMap[varID] = true

		g.Edges = append(g.Edges, Edge{
			From: colID,
			To:   varID,
			Kind: EdgeContains,
		})
	}

	// 2. Alias edges, one per variable pair with the modes as label
	type pair struct{ from, to string }
	index := make(map[pair]int)
	for _, rel := range r.Relationships {
		p := pair{variablePrefix + rel.From, variablePrefix + rel.To}
		if i, ok := index[p]; ok {
			g.Edges[i].Weight++
			g.Edges[i].Label += ", " + rel.Mode
			continue
		}
		index[p] = len(g.Edges)
		g.Edges = append(g.Edges, Edge{
			From:   p.from,
			To:     p.to,
			Kind:   EdgeAliasedBy,
			Weight: 1,
			Label:  rel.Mode,
		})
	}

	g.computeStats()
	return g
}

// VariableID returns the node id used for a variable.
func VariableID(id string) string {
	return variablePrefix + id
}

// computeStats computes graph metrics
func (g *Graph) computeStats() {
	g.Stats.TotalNodes = len(g.Nodes)
	g.Stats.TotalEdges = len(g.Edges)
	g.Stats.TypeCounts = make(map[string]int)
	g.Stats.CollectionSizes = make(map[string]int)

	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeCollection:
			g.Stats.CollectionCount++
		case NodeVariable:
			g.Stats.VariableCount++
			g.Stats.TypeCounts[n.Type]++
			g.Stats.CollectionSizes[n.Collection]++
			if n.TotalUsage > g.Stats.HotspotUsage {
				g.Stats.HotspotUsage = n.TotalUsage
				g.Stats.HotspotNode = n.ID
			}
			if n.TotalUsage == 0 {
				g.Stats.Unused = append(g.Stats.Unused, n.ID)
			}
		}
	}

	fanOut := make(map[string]int)
	fanIn := make(map[string]int)
	for _, e := range g.Edges {
		if e.Kind != EdgeAliasedBy {
			continue
		}
		g.Stats.AliasEdgeCount++
		fanOut[e.From]++
		fanIn[e.To]++
	}
	for _, count := range fanOut {
		if count > g.Stats.MaxFanOut {
			g.Stats.MaxFanOut = count
		}
	}
	for _, count := range fanIn {
		if count > g.Stats.MaxFanIn {
			g.Stats.MaxFanIn = count
		}
	}

	// Alias clusters via union-find
	g.Stats.ConnectedComponents = g.countComponents()

	// Alias cycles
	g.Stats.AliasCycles = g.detectCycles()
}

// countComponents counts alias clusters among variables via union-find. A
// variable with no alias edges is its own cluster.
func (g *Graph) countComponents() int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range g.Nodes {
		if n.Kind == NodeVariable {
			find(n.ID)
		}
	}
	for _, e := range g.Edges {
		if e.Kind == EdgeAliasedBy {
			union(e.From, e.To)
		}
	}

	roots := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.Kind == NodeVariable {
			roots[find(n.ID)] = true
		}
	}
	return len(roots)
}

// detectCycles finds alias cycles using DFS
func (g *Graph) detectCycles() [][]string {
	adj := make(map[string][]string)
	vars := make(map[string]bool)
	for _, e := range g.Edges {
		if e.Kind == EdgeAliasedBy {
			adj[e.From] = append(adj[e.From], e.To)
			vars[e.From] = true
			vars[e.To] = true
		}
	}

	var cycles [][]string
	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	path := make([]string, 0)

	var dfs func(node string)
	dfs = func(node string) {
		if visited[node] == 2 {
			return
		}
		if visited[node] == 1 {
			cycle := make([]string, 0)
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, strings.TrimPrefix(path[i], variablePrefix))
				if path[i] == node {
					break
				}
			}
			for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
				cycle[i], cycle[j] = cycle[j], cycle[i]
			}
			cycles = append(cycles, cycle)
			return
		}
		visited[node] = 1
		path = append(path, node)
		for _, next := range adj[node] {
			dfs(next)
		}
		path = path[:len(path)-1]
		visited[node] = 2
	}

	sorted := make([]string, 0, len(vars))
	for v := range vars {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	for _, v := range sorted {
		if visited[v] == 0 {
			dfs(v)
		}
	}
	return cycles
}
