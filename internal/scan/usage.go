// Package scan computes variable usage, alias relationships and resolved
// values for a document.
package scan

import (
	"sort"

	"github.com/efebarandurmaz/varnet/internal/document"
)

// IDSet is a set of variable ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Role classifies the node holding a binding.
type Role string

const (
	RoleComponent Role = "component"
	RoleInstance  Role = "instance"
	RoleDetached  Role = "detached"
)

// Classify returns the structural role of a node kind.
func Classify(kind document.NodeKind) Role {
	switch kind {
	case document.KindComponent, document.KindComponentSet:
		return RoleComponent
	case document.KindInstance:
		return RoleInstance
	default:
		return RoleDetached
	}
}

// Breakdown splits binding occurrences by structural role.
type Breakdown struct {
	Total          int `json:"total"`
	ComponentLevel int `json:"component_level"`
	InstanceLevel  int `json:"instance_level"`
	Detached       int `json:"detached"`
}

func (b *Breakdown) add(r Role) {
	b.Total++
	switch r {
	case RoleComponent:
		b.ComponentLevel++
	case RoleInstance:
		b.InstanceLevel++
	default:
		b.Detached++
	}
}

// NodeRef describes a node that binds a variable.
type NodeRef struct {
	ID   string            `json:"id"`
	Kind document.NodeKind `json:"type"`
	Name string            `json:"name"`
}

// unknownNodeName is reported for nodes without a name.
const unknownNodeName = "Unknown"

// Usage aggregates the bindings of a single variable.
type Usage struct {
	Direct    int
	NodeIDs   []string
	Breakdown Breakdown
	Nodes     []NodeRef

	seen map[string]bool
}

// UsageIndex holds usage for every selected variable found in the tree.
type UsageIndex struct {
	byVar map[string]*Usage

	// NodesVisited counts every node walked, bound or not.
	NodesVisited int
	// Bindings counts registered binding occurrences.
	Bindings int
}

// Get returns the usage of id, zero if the variable is never bound.
func (u *UsageIndex) Get(id string) Usage {
	if u == nil {
		return Usage{}
	}
	if usage, ok := u.byVar[id]; ok {
		return *usage
	}
	return Usage{}
}

// Direct returns the direct binding count of id.
func (u *UsageIndex) Direct(id string) int {
	if u == nil {
		return 0
	}
	if usage, ok := u.byVar[id]; ok {
		return usage.Direct
	}
	return 0
}

func (u *UsageIndex) register(varID string, n *document.Node) {
	usage, ok := u.byVar[varID]
	if !ok {
		usage = &Usage{seen: make(map[string]bool)}
		u.byVar[varID] = usage
	}
	usage.Direct++
	if !usage.seen[n.ID] {
		usage.seen[n.ID] = true
		usage.NodeIDs = append(usage.NodeIDs, n.ID)
	}
	usage.Breakdown.add(Classify(n.Kind))

	name := n.Name
	if name == "" {
		name = unknownNodeName
	}
	usage.Nodes = append(usage.Nodes, NodeRef{ID: n.ID, Kind: n.Kind, Name: name})
	u.Bindings++
}

// ScanUsage walks every page in pre-order and records bindings to selected
// variables. Bindings to variables outside selected are ignored entirely.
func ScanUsage(pages []*document.Node, selected IDSet) *UsageIndex {
	idx := &UsageIndex{byVar: make(map[string]*Usage)}

	stack := make([]*document.Node, 0, len(pages))
	for i := len(pages) - 1; i >= 0; i-- {
		stack = append(stack, pages[i])
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		idx.NodesVisited++

		for _, slot := range sortedSlots(n.Bindings) {
			for _, ref := range n.Bindings[slot].References() {
				if !selected.Has(ref.VariableID) {
					continue
				}
				idx.register(ref.VariableID, n)
			}
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return idx
}

// sortedSlots orders binding slots so repeated scans list nodes identically.
func sortedSlots(bindings map[string]document.Binding) []string {
	if len(bindings) == 0 {
		return nil
	}
	slots := make([]string, 0, len(bindings))
	for slot := range bindings {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots
}
