package tui

import (
	"sort"
	"strings"
	"time"

	"github.com/efebarandurmaz/varnet/internal/netgraph"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// Mark is the cleanup decision attached to a variable while browsing
type Mark int

const (
	MarkNone Mark = iota
	MarkKeep
	MarkDeprecate
)

// String returns the string representation of Mark
func (m Mark) String() string {
	switch m {
	case MarkNone:
		return "unmarked"
	case MarkKeep:
		return "keep"
	case MarkDeprecate:
		return "deprecate"
	default:
		return "unknown"
	}
}

// BrowseItem is a single variable in the browser
type BrowseItem struct {
	Variable  *scan.VariableReport
	AliasOf   []string // variables this one references, by name
	AliasedBy []string // variables referencing this one, by name
	Mark      Mark
}

// Unused reports whether nothing binds the variable, directly or through
// aliases.
func (i *BrowseItem) Unused() bool {
	return i.Variable.TotalUsage == 0
}

// BrowseSession holds every item of a browse
type BrowseSession struct {
	Items      []*BrowseItem
	TypeCounts map[string]int
	Stats      netgraph.GraphStats
	PeakUsage  int
	CreatedAt  time.Time
}

// NewBrowseSession creates a session from a scan report, ordering items by
// total usage, busiest first.
func NewBrowseSession(report *scan.Report) *BrowseSession {
	session := &BrowseSession{
		Items:      make([]*BrowseItem, 0, len(report.Variables)),
		TypeCounts: make(map[string]int, len(report.TypeCounts)),
		Stats:      netgraph.Analyze(report).Stats,
		CreatedAt:  time.Now(),
	}
	for t, n := range report.TypeCounts {
		session.TypeCounts[string(t)] = n
	}

	names := make(map[string]string, len(report.Variables))
	for _, v := range report.Variables {
		names[v.ID] = v.Name
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	aliasOf := make(map[string][]string)
	aliasedBy := make(map[string][]string)
	for _, e := range report.Relationships {
		aliasOf[e.To] = appendUnique(aliasOf[e.To], nameOf(e.From))
		aliasedBy[e.From] = appendUnique(aliasedBy[e.From], nameOf(e.To))
	}

	for _, v := range report.Variables {
		session.Items = append(session.Items, &BrowseItem{
			Variable:  v,
			AliasOf:   aliasOf[v.ID],
			AliasedBy: aliasedBy[v.ID],
		})
		session.PeakUsage = max(session.PeakUsage, v.TotalUsage)
	}

	sort.SliceStable(session.Items, func(i, j int) bool {
		a, b := session.Items[i].Variable, session.Items[j].Variable
		if a.TotalUsage != b.TotalUsage {
			return a.TotalUsage > b.TotalUsage
		}
		return a.Name < b.Name
	})

	return session
}

// Filter returns the indices of items whose name or collection contains
// query, case-insensitively. An empty query matches everything.
func (s *BrowseSession) Filter(query string) []int {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]int, 0, len(s.Items))
	for i, item := range s.Items {
		if query == "" ||
			strings.Contains(strings.ToLower(item.Variable.Name), query) ||
			strings.Contains(strings.ToLower(item.Variable.Collection), query) {
			out = append(out, i)
		}
	}
	return out
}

// Counts tallies items per mark.
func (s *BrowseSession) Counts() map[Mark]int {
	counts := make(map[Mark]int, 3)
	for _, item := range s.Items {
		counts[item.Mark]++
	}
	return counts
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
