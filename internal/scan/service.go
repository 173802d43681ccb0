package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/observability"
)

// ErrProvider wraps every failure reported by the document provider. A scan
// that hits one is abandoned without a partial result.
var ErrProvider = errors.New("document provider failed")

// ScanOptions selects what a scan covers.
type ScanOptions struct {
	// Types restricts the scan to variables of these types. Empty means COLOR.
	Types []document.VariableType
}

// DefaultTypes is the selection used when a scan names no types.
func DefaultTypes() []document.VariableType {
	return []document.VariableType{document.TypeColor}
}

// Service answers census and scan requests against a document provider.
type Service struct {
	provider  document.Provider
	logger    *slog.Logger
	metrics   *observability.Metrics
	cacheSize int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records scan metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLookupCacheSize bounds the per-scan alias lookup cache.
func WithLookupCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// NewService creates a service over provider.
func NewService(provider document.Provider, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		logger:    slog.Default(),
		cacheSize: document.DefaultLookupCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Census counts all variables per recognized type, ignoring any selection.
func (s *Service) Census(ctx context.Context) (counts TypeCounts, err error) {
	ctx, span := observability.StartCensusSpan(ctx)
	defer span.End()
	start := time.Now()
	defer func() {
		observability.RecordError(span, err)
		s.metrics.RecordCensus(time.Since(start), err)
	}()

	vars, err := s.provider.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list variables: %w", ErrProvider, err)
	}
	return Census(vars), nil
}

// Scan computes usage, alias relationships and resolved values for every
// variable of the selected types. All intermediate state lives for this call
// only.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) (report *Report, err error) {
	types := normalizeTypes(opts.Types)
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	ctx, span := observability.StartScanSpan(ctx, names)
	defer span.End()
	start := time.Now()
	defer func() {
		observability.RecordError(span, err)
		if err != nil {
			s.metrics.RecordScan(time.Since(start), 0, 0, 0, err)
			s.logger.Error("Scan failed", "types", names, "error", err)
			return
		}
		observability.RecordScanResult(span, report.Stats.VariablesSelected, report.Stats.Bindings, report.Stats.AliasEdges)
		s.metrics.RecordScan(report.Stats.Duration, report.Stats.VariablesSelected, report.Stats.Bindings, report.Stats.AliasEdges, nil)
	}()

	vars, err := s.provider.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list variables: %w", ErrProvider, err)
	}
	cols, err := s.provider.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %w", ErrProvider, err)
	}
	collections := make(map[string]*document.Collection, len(cols))
	for _, c := range cols {
		collections[c.ID] = c
	}

	selectedVars, selected := selectVariables(vars, types)
	s.logger.Debug("Selected variables", "types", names, "count", len(selectedVars))

	pages, err := s.provider.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pages: %w", ErrProvider, err)
	}
	usage := ScanUsage(pages, selected)
	graph := BuildAliasGraph(selectedVars, collections, selected)

	lookup, err := document.NewCachedProvider(s.provider, s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	m := NewMaterializer(lookup, collections)

	report = &Report{
		Variables:     make([]*VariableReport, 0, len(selectedVars)),
		Relationships: graph.Edges,
		TypeCounts:    Census(vars),
	}
	if report.Relationships == nil {
		report.Relationships = []Edge{}
	}
	for _, v := range selectedVars {
		c, ok := collections[v.CollectionID]
		if !ok {
			s.logger.Debug("Skipping variable without collection", "id", v.ID, "collection", v.CollectionID)
			continue
		}
		rec, err := m.Materialize(ctx, v, c, usage)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		rec.TotalUsage = TotalUsage(v.ID, usage, graph)
		report.Variables = append(report.Variables, rec)
	}

	report.Stats = ScanStats{
		SelectedTypes:     types,
		VariablesSelected: len(report.Variables),
		NodesVisited:      usage.NodesVisited,
		Bindings:          usage.Bindings,
		AliasEdges:        len(graph.Edges),
		Duration:          time.Since(start),
	}
	s.logger.Info("Scan complete",
		"types", names,
		"variables", report.Stats.VariablesSelected,
		"bindings", report.Stats.Bindings,
		"alias_edges", report.Stats.AliasEdges,
		"duration", report.Stats.Duration,
	)
	return report, nil
}

// selectVariables keeps, in provider order, the variables whose type is
// selected. Variables without a known collection stay selected so their
// bindings and aliases count towards usage; the caller skips them when
// materializing.
func selectVariables(vars []*document.Variable, types []document.VariableType) ([]*document.Variable, IDSet) {
	want := make(map[document.VariableType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []*document.Variable
	ids := make(IDSet)
	for _, v := range vars {
		if v == nil || !want[v.Type] {
			continue
		}
		out = append(out, v)
		ids[v.ID] = struct{}{}
	}
	return out, ids
}

// normalizeTypes upper-cases and deduplicates types, keeping their order.
func normalizeTypes(types []document.VariableType) []document.VariableType {
	if len(types) == 0 {
		return DefaultTypes()
	}
	seen := make(map[document.VariableType]bool, len(types))
	out := make([]document.VariableType, 0, len(types))
	for _, t := range types {
		t = document.ParseVariableType(string(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return DefaultTypes()
	}
	return out
}
