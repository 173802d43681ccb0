package scan

import "github.com/efebarandurmaz/varnet/internal/document"

// TypeCounts maps each recognized variable type to its number of variables.
type TypeCounts map[document.VariableType]int

// Census counts variables per recognized type. Every recognized type is
// present, zero when unused; unrecognized types are left out.
func Census(vars []*document.Variable) TypeCounts {
	counts := make(TypeCounts, 4)
	for _, t := range document.AllTypes() {
		counts[t] = 0
	}
	for _, v := range vars {
		if v == nil || !v.Type.Known() {
			continue
		}
		counts[v.Type]++
	}
	return counts
}

// Total returns the number of counted variables.
func (c TypeCounts) Total() int {
	n := 0
	for _, count := range c {
		n += count
	}
	return n
}
