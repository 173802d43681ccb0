// Package document models a design document and the variables bound inside it.
package document

import (
	"sort"
	"strings"
)

// VariableType is the declared type of a variable.
type VariableType string

const (
	TypeColor   VariableType = "COLOR"
	TypeFloat   VariableType = "FLOAT"
	TypeString  VariableType = "STRING"
	TypeBoolean VariableType = "BOOLEAN"
)

// AllTypes returns the recognized variable types in canonical order.
func AllTypes() []VariableType {
	return []VariableType{TypeColor, TypeFloat, TypeString, TypeBoolean}
}

// Known reports whether t is one of the recognized types.
func (t VariableType) Known() bool {
	switch t {
	case TypeColor, TypeFloat, TypeString, TypeBoolean:
		return true
	}
	return false
}

// ParseVariableType normalizes a type name. Unrecognized names are returned
// upper-cased so they still flow through the formatter fallback.
func ParseVariableType(s string) VariableType {
	return VariableType(strings.ToUpper(strings.TrimSpace(s)))
}

// Mode is one column of a collection (e.g. "Light", "Dark").
type Mode struct {
	ID   string `json:"modeId" yaml:"modeId"`
	Name string `json:"name" yaml:"name"`
}

// Collection groups variables that share an ordered set of modes.
type Collection struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Modes []Mode `json:"modes" yaml:"modes"`
}

// Variable is a named, typed value with one entry per collection mode.
type Variable struct {
	ID           string           `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Type         VariableType     `json:"resolvedType" yaml:"resolvedType"`
	CollectionID string           `json:"variableCollectionId" yaml:"variableCollectionId"`
	ValuesByMode map[string]Value `json:"valuesByMode" yaml:"valuesByMode"`
}

// FirstModeValue returns the variable's value in the first mode of its
// collection. When the collection is unknown the lexically smallest mode id
// is used so the result stays deterministic.
func (v *Variable) FirstModeValue(c *Collection) (Value, bool) {
	if c != nil && len(c.Modes) > 0 {
		val, ok := v.ValuesByMode[c.Modes[0].ID]
		return val, ok
	}
	if len(v.ValuesByMode) == 0 {
		return Value{}, false
	}
	keys := make([]string, 0, len(v.ValuesByMode))
	for k := range v.ValuesByMode {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return v.ValuesByMode[keys[0]], true
}

// Document is a complete snapshot: node tree plus the variable set.
type Document struct {
	Root        *Node         `json:"root" yaml:"root"`
	Variables   []*Variable   `json:"variables" yaml:"variables"`
	Collections []*Collection `json:"collections" yaml:"collections"`
}

// Pages returns the top-level containers of the document.
func (d *Document) Pages() []*Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Children
}
