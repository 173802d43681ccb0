package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/efebarandurmaz/varnet/internal/scan"
)

const (
	snapshotsDir = "snapshots"
	objectsDir   = "objects"
	indexFile    = "index.json"
)

// RefLatest resolves to the newest snapshot.
const RefLatest = "latest"

// ErrNotFound is returned when a snapshot reference matches nothing.
var ErrNotFound = errors.New("snapshot not found")

// Store provides content-addressable storage for scan snapshots.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	index   *SnapshotIndex
}

// NewStore creates or opens a snapshot store at the given directory.
func NewStore(rootDir string) (*Store, error) {
	s := &Store{rootDir: rootDir}

	// Create directory structure
	dirs := []string{
		filepath.Join(rootDir, snapshotsDir),
		filepath.Join(rootDir, objectsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	// Load or create index
	if err := s.loadIndex(); err != nil {
		s.index = &SnapshotIndex{
			Snapshots: []SnapshotSummary{},
			UpdatedAt: time.Now(),
		}
	}

	return s, nil
}

// Save persists a snapshot and its serialized report. A snapshot without a
// parent is chained to the newest snapshot of the same document.
func (s *Store) Save(snap *Snapshot, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ContentHash(report) != snap.ContentHash {
		return fmt.Errorf("report content does not match snapshot %s", snap.ID)
	}
	if err := s.writeObject(snap.ContentHash, report); err != nil {
		return fmt.Errorf("store report object: %w", err)
	}

	if snap.ParentID == "" {
		if parent, ok := s.newest(snap.DocumentPath); ok {
			snap.ParentID = parent.ID
		}
	}

	if err := s.writeSnapshot(snap); err != nil {
		return err
	}

	s.index.Snapshots = append(s.index.Snapshots, snap.Summary())
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Load retrieves a snapshot by ID.
func (s *Store) Load(id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *Store) load(id string) (*Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// LoadReport retrieves the full report captured by snap.
func (s *Store) LoadReport(snap *Snapshot) (*scan.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.readObject(snap.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("read report of %s: %w", snap.ID, err)
	}
	var report scan.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report of %s: %w", snap.ID, err)
	}
	return &report, nil
}

// List returns all snapshot summaries, newest first.
func (s *Store) List() []SnapshotSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]SnapshotSummary, len(s.index.Snapshots))
	copy(result, s.index.Snapshots)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// Resolve finds a snapshot by "latest", tag, full id or unique id prefix.
func (s *Store) Resolve(ref string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ref == RefLatest {
		summary, ok := s.newest("")
		if !ok {
			return nil, fmt.Errorf("%w: store is empty", ErrNotFound)
		}
		return s.load(summary.ID)
	}

	var prefixed []string
	for _, summary := range s.index.Snapshots {
		if summary.ID == ref || (summary.Tag != "" && summary.Tag == ref) {
			return s.load(summary.ID)
		}
		if strings.HasPrefix(summary.ID, ref) {
			prefixed = append(prefixed, summary.ID)
		}
	}
	switch len(prefixed) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return s.load(prefixed[0])
	default:
		return nil, fmt.Errorf("snapshot prefix %q is ambiguous (%d matches)", ref, len(prefixed))
	}
}

// Tag assigns a tag to a snapshot. Tags are unique: the tag moves off any
// snapshot that held it before.
func (s *Store) Tag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(id)
	if err != nil {
		return err
	}
	snap.Tag = tag
	if err := s.writeSnapshot(snap); err != nil {
		return err
	}

	for i, summary := range s.index.Snapshots {
		switch {
		case summary.ID == id:
			s.index.Snapshots[i].Tag = tag
		case tag != "" && summary.Tag == tag:
			s.index.Snapshots[i].Tag = ""
			if prev, err := s.load(summary.ID); err == nil {
				prev.Tag = ""
				_ = s.writeSnapshot(prev)
			}
		}
	}
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Delete removes a snapshot. Report objects still referenced by another
// snapshot are kept.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.rootDir, snapshotsDir, id)); err != nil {
		return fmt.Errorf("remove snapshot dir: %w", err)
	}

	// Remove from index
	filtered := s.index.Snapshots[:0]
	for _, summary := range s.index.Snapshots {
		if summary.ID != id {
			filtered = append(filtered, summary)
		}
	}
	s.index.Snapshots = filtered
	s.index.UpdatedAt = time.Now()

	shared := false
	for _, summary := range s.index.Snapshots {
		if other, err := s.load(summary.ID); err == nil && other.ContentHash == snap.ContentHash {
			shared = true
			break
		}
	}
	if !shared {
		if err := os.Remove(s.objectPath(snap.ContentHash)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove report object: %w", err)
		}
	}

	return s.saveIndex()
}

// newest returns the most recent summary, restricted to documentPath when it
// is not empty.
func (s *Store) newest(documentPath string) (SnapshotSummary, bool) {
	var best SnapshotSummary
	found := false
	for _, summary := range s.index.Snapshots {
		if documentPath != "" && summary.DocumentPath != documentPath {
			continue
		}
		if !found || summary.CreatedAt.After(best.CreatedAt) {
			best, found = summary, true
		}
	}
	return best, found
}

func (s *Store) snapshotPath(id string) string {
	return filepath.Join(s.rootDir, snapshotsDir, id, "snapshot.json")
}

func (s *Store) writeSnapshot(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath(snap.ID)), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.snapshotPath(snap.ID), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) objectPath(hash string) string {
	return filepath.Join(s.rootDir, objectsDir, hash[:2], hash[2:])
}

// writeObject stores content by its hash.
func (s *Store) writeObject(hash string, content []byte) error {
	objPath := s.objectPath(hash)
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(objPath); err == nil {
		return nil // Already exists (content-addressable dedup)
	}
	return os.WriteFile(objPath, content, 0o644)
}

// readObject retrieves content by its hash.
func (s *Store) readObject(hash string) ([]byte, error) {
	return os.ReadFile(s.objectPath(hash))
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.rootDir, indexFile))
	if err != nil {
		return err
	}
	s.index = &SnapshotIndex{}
	return json.Unmarshal(data, s.index)
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.rootDir, indexFile), data, 0o644)
}
