// Package netgraph turns a scan report into a variable network and exports it
// for external tooling.
package netgraph

// Node represents a collection or a variable in the network.
type Node struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Kind        NodeKind          `json:"kind"`       // collection, variable
	Collection  string            `json:"collection"` // owning collection name
	Type        string            `json:"type,omitempty"`
	DirectUsage int               `json:"direct_usage,omitempty"`
	TotalUsage  int               `json:"total_usage,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NodeKind classifies graph nodes
type NodeKind string

const (
	NodeCollection NodeKind = "collection"
	NodeVariable   NodeKind = "variable"
)

// Edge represents a directed edge between two nodes
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   EdgeKind `json:"kind"`
	Weight int      `json:"weight,omitempty"` // number of modes carrying the alias
	Label  string   `json:"label,omitempty"`
}

// EdgeKind classifies relationships
type EdgeKind string

const (
	EdgeContains  EdgeKind = "contains"   // collection contains variable
	EdgeAliasedBy EdgeKind = "aliased_by" // variable is aliased by another variable
)

// Graph is the full variable network
type Graph struct {
	Nodes []Node     `json:"nodes"`
	Edges []Edge     `json:"edges"`
	Stats GraphStats `json:"stats"`
}

// GraphStats holds computed metrics about the network
type GraphStats struct {
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	CollectionCount     int            `json:"collection_count"`
	VariableCount       int            `json:"variable_count"`
	AliasEdgeCount      int            `json:"alias_edge_count"`
	TypeCounts          map[string]int `json:"type_counts"`
	MaxFanOut           int            `json:"max_fan_out"` // most variables aliasing one variable
	MaxFanIn            int            `json:"max_fan_in"`  // most distinct alias targets of one variable
	HotspotNode         string         `json:"hotspot_node"`
	HotspotUsage        int            `json:"hotspot_usage"` // total usage of the hotspot
	ConnectedComponents int            `json:"connected_components"`
	AliasCycles         [][]string     `json:"alias_cycles,omitempty"`
	Unused              []string       `json:"unused,omitempty"`
	CollectionSizes     map[string]int `json:"collection_sizes"`
}
