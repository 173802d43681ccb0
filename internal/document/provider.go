package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// ErrDocumentLoad is returned when a document snapshot cannot be read.
var ErrDocumentLoad = errors.New("document load failed")

// Provider supplies variables, collections and the node tree.
type Provider interface {
	// Variables enumerates every variable defined in the document.
	Variables(ctx context.Context) ([]*Variable, error)
	// Collections enumerates every variable collection.
	Collections(ctx context.Context) ([]*Collection, error)
	// VariableByID resolves one variable. A missing variable is (nil, false, nil).
	VariableByID(ctx context.Context, id string) (*Variable, bool, error)
	// Pages returns the top-level containers of the node tree.
	Pages(ctx context.Context) ([]*Node, error)
}

// MemoryProvider serves a document held in memory.
type MemoryProvider struct {
	doc  *Document
	byID map[string]*Variable
}

// NewMemoryProvider creates a provider over doc.
func NewMemoryProvider(doc *Document) *MemoryProvider {
	if doc == nil {
		doc = &Document{}
	}
	byID := make(map[string]*Variable, len(doc.Variables))
	for _, v := range doc.Variables {
		byID[v.ID] = v
	}
	return &MemoryProvider{doc: doc, byID: byID}
}

func (p *MemoryProvider) Variables(ctx context.Context) ([]*Variable, error) {
	return p.doc.Variables, ctx.Err()
}

func (p *MemoryProvider) Collections(ctx context.Context) ([]*Collection, error) {
	return p.doc.Collections, ctx.Err()
}

func (p *MemoryProvider) VariableByID(ctx context.Context, id string) (*Variable, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := p.byID[id]
	return v, ok, nil
}

func (p *MemoryProvider) Pages(ctx context.Context) ([]*Node, error) {
	return p.doc.Pages(), ctx.Err()
}

// Document returns the underlying document.
func (p *MemoryProvider) Document() *Document {
	return p.doc
}

// LoadFile reads a document snapshot from a .json, .yaml or .yml file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDocumentLoad, path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a document snapshot. ext selects the codec (".json", ".yaml").
func Parse(data []byte, ext string) (*Document, error) {
	var doc Document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentLoad, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentLoad, err)
		}
	}
	return &doc, nil
}

// NewFileProvider loads path and serves it from memory.
func NewFileProvider(path string) (*MemoryProvider, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryProvider(doc), nil
}

// DefaultLookupCacheSize bounds CachedProvider when no size is configured.
const DefaultLookupCacheSize = 4096

// CachedProvider memoizes VariableByID lookups. It is meant to live for a
// single scan: create one per request and drop it afterwards.
type CachedProvider struct {
	Provider
	lookups *lru.Cache[string, *Variable]
}

// NewCachedProvider wraps inner with an LRU of the given size.
func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultLookupCacheSize
	}
	cache, err := lru.New[string, *Variable](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &CachedProvider{Provider: inner, lookups: cache}, nil
}

func (p *CachedProvider) VariableByID(ctx context.Context, id string) (*Variable, bool, error) {
	if v, ok := p.lookups.Get(id); ok {
		return v, v != nil, nil
	}
	v, ok, err := p.Provider.VariableByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		v = nil
	}
	p.lookups.Add(id, v)
	return v, ok, nil
}
