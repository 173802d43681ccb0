package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/efebarandurmaz/varnet/internal/scan"
)

// Snapshot is a point-in-time capture of a scan report. The full report is
// kept as a content-addressed object; the snapshot carries enough per
// variable to diff two captures without loading either report.
type Snapshot struct {
	ID           string          `json:"id"`
	ParentID     string          `json:"parent_id,omitempty"`
	Tag          string          `json:"tag,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	DocumentPath string          `json:"document_path"`
	ContentHash  string          `json:"content_hash"`
	Types        []string        `json:"types"`
	Stats        StatsInfo       `json:"stats"`
	Variables    []VariableEntry `json:"variables"`
}

// StatsInfo copies the scan counters.
type StatsInfo struct {
	Variables    int `json:"variables"`
	NodesVisited int `json:"nodes_visited"`
	Bindings     int `json:"bindings"`
	AliasEdges   int `json:"alias_edges"`
}

// VariableEntry records one scanned variable.
type VariableEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Collection  string   `json:"collection"`
	ValueHash   string   `json:"value_hash"`
	DirectUsage int      `json:"direct_usage"`
	TotalUsage  int      `json:"total_usage"`
	AliasOf     []string `json:"alias_of,omitempty"` // referenced variable ids, sorted
}

// SnapshotIndex is a lightweight listing of all snapshots for fast lookup.
type SnapshotIndex struct {
	Snapshots []SnapshotSummary `json:"snapshots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SnapshotSummary is the minimal info for listing snapshots.
type SnapshotSummary struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id,omitempty"`
	Tag          string    `json:"tag,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	DocumentPath string    `json:"document_path"`
	Types        []string  `json:"types"`
	Variables    int       `json:"variables"`
	Bindings     int       `json:"bindings"`
}

// NewSnapshot captures report. It returns the snapshot and the serialized
// report to store alongside it.
func NewSnapshot(report *scan.Report, documentPath string) (*Snapshot, []byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal report: %w", err)
	}

	snap := &Snapshot{
		CreatedAt:    time.Now(),
		DocumentPath: documentPath,
		ContentHash:  ContentHash(data),
		Types:        make([]string, len(report.Stats.SelectedTypes)),
		Stats: StatsInfo{
			Variables:    len(report.Variables),
			NodesVisited: report.Stats.NodesVisited,
			Bindings:     report.Stats.Bindings,
			AliasEdges:   report.Stats.AliasEdges,
		},
		Variables: make([]VariableEntry, 0, len(report.Variables)),
	}
	for i, t := range report.Stats.SelectedTypes {
		snap.Types[i] = string(t)
	}

	for _, v := range report.Variables {
		snap.Variables = append(snap.Variables, VariableEntry{
			ID:          v.ID,
			Name:        v.Name,
			Type:        string(v.Type),
			Collection:  v.Collection,
			ValueHash:   valueHash(v),
			DirectUsage: v.DirectUsage,
			TotalUsage:  v.TotalUsage,
			AliasOf:     aliasTargets(v),
		})
	}

	snap.ID = generateSnapshotID(snap)
	return snap, data, nil
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// valueHash digests the displayed value and reference of every mode.
func valueHash(v *scan.VariableReport) string {
	h := sha256.New()
	for _, mode := range v.Modes {
		h.Write([]byte(mode))
		h.Write([]byte{0})
		h.Write([]byte(v.Values[mode]))
		h.Write([]byte{0})
		if ref := v.References[mode]; ref != nil {
			h.Write([]byte(*ref))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func aliasTargets(v *scan.VariableReport) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ref := range v.References {
		if ref != nil && !seen[*ref] {
			seen[*ref] = true
			out = append(out, *ref)
		}
	}
	sort.Strings(out)
	return out
}

func generateSnapshotID(snap *Snapshot) string {
	data, _ := json.Marshal(struct {
		Time    int64  `json:"t"`
		Content string `json:"c"`
	}{
		Time:    snap.CreatedAt.UnixNano(),
		Content: snap.ContentHash,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8]) // Short 16-char hex ID
}

// Summary returns a lightweight summary of this snapshot.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:           s.ID,
		ParentID:     s.ParentID,
		Tag:          s.Tag,
		CreatedAt:    s.CreatedAt,
		DocumentPath: s.DocumentPath,
		Types:        s.Types,
		Variables:    s.Stats.Variables,
		Bindings:     s.Stats.Bindings,
	}
}
