package document

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeKind is the type tag of a document node.
type NodeKind string

const (
	KindDocument     NodeKind = "DOCUMENT"
	KindPage         NodeKind = "PAGE"
	KindFrame        NodeKind = "FRAME"
	KindGroup        NodeKind = "GROUP"
	KindRectangle    NodeKind = "RECTANGLE"
	KindText         NodeKind = "TEXT"
	KindComponent    NodeKind = "COMPONENT"
	KindComponentSet NodeKind = "COMPONENT_SET"
	KindInstance     NodeKind = "INSTANCE"
)

// Node is one element of the document tree.
type Node struct {
	ID       string             `json:"id" yaml:"id"`
	Kind     NodeKind           `json:"type" yaml:"type"`
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Bindings map[string]Binding `json:"boundVariables,omitempty" yaml:"boundVariables,omitempty"`
	Children []*Node            `json:"children,omitempty" yaml:"children,omitempty"`
}

// Reference points a property slot at a variable.
type Reference struct {
	VariableID string `json:"id" yaml:"id"`
}

// Binding is the content of one property slot: a single reference or a list
// of references (e.g. one per fill).
type Binding struct {
	Refs []Reference
	List bool
}

// Single builds a single-reference binding.
func Single(variableID string) Binding {
	return Binding{Refs: []Reference{{VariableID: variableID}}}
}

// List builds a multi-reference binding.
func List(variableIDs ...string) Binding {
	b := Binding{List: true}
	for _, id := range variableIDs {
		b.Refs = append(b.Refs, Reference{VariableID: id})
	}
	return b
}

// References returns every reference held by the binding.
func (b Binding) References() []Reference {
	return b.Refs
}

func (b Binding) MarshalJSON() ([]byte, error) {
	if b.List {
		return json.Marshal(b.Refs)
	}
	if len(b.Refs) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(b.Refs[0])
}

func (b *Binding) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode binding: %w", err)
	}
	*b = bindingFromAny(raw)
	return nil
}

func (b *Binding) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode binding: %w", err)
	}
	*b = bindingFromAny(raw)
	return nil
}

// bindingFromAny drops entries without a string id, the same way a slot with
// an unexpected shape contributes nothing to usage.
func bindingFromAny(raw any) Binding {
	switch t := raw.(type) {
	case map[string]any:
		if id, ok := t["id"].(string); ok {
			return Single(id)
		}
	case []any:
		b := Binding{List: true}
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := m["id"].(string); ok {
				b.Refs = append(b.Refs, Reference{VariableID: id})
			}
		}
		return b
	}
	return Binding{}
}

// LocatedNode is a node together with the page that contains it.
type LocatedNode struct {
	Node *Node
	Page *Node
}

// FindNodes looks up nodes by id under the given pages. Results follow the
// order of ids; unknown ids are skipped.
func FindNodes(pages []*Node, ids []string) []LocatedNode {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	found := make(map[string]LocatedNode, len(ids))
	type frame struct {
		node *Node
		page *Node
	}
	stack := make([]frame, 0, len(pages))
	for i := len(pages) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: pages[i], page: pages[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}
		if want[f.node.ID] {
			if _, seen := found[f.node.ID]; !seen {
				found[f.node.ID] = LocatedNode{Node: f.node, Page: f.page}
			}
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], page: f.page})
		}
	}

	out := make([]LocatedNode, 0, len(found))
	for _, id := range ids {
		if ln, ok := found[id]; ok {
			out = append(out, ln)
			delete(found, id)
		}
	}
	return out
}
