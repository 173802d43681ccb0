// Package publish exports finished scan reports to external sinks.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/varnet/internal/graph"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/scan"
	"github.com/efebarandurmaz/varnet/internal/vector"
)

// Sink receives a report. Publish returns how many records it wrote.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r *scan.Report) (int, error)
}

// GraphSink stores the variable network in a graph repository.
type GraphSink struct {
	repo graph.Repository
}

func NewGraphSink(repo graph.Repository) *GraphSink { return &GraphSink{repo: repo} }

func (s *GraphSink) Name() string { return "neo4j" }

func (s *GraphSink) Publish(ctx context.Context, r *scan.Report) (int, error) {
	if err := s.repo.StoreReport(ctx, r); err != nil {
		return 0, err
	}
	return len(r.Variables), nil
}

// ColorSink indexes resolved colours for similarity search.
type ColorSink struct {
	indexer *vector.Indexer
}

func NewColorSink(ix *vector.Indexer) *ColorSink { return &ColorSink{indexer: ix} }

func (s *ColorSink) Name() string { return "qdrant" }

func (s *ColorSink) Publish(ctx context.Context, r *scan.Report) (int, error) {
	return s.indexer.IndexReport(ctx, r)
}

// Result is the outcome of one sink.
type Result struct {
	Sink     string        `json:"sink"`
	Written  int           `json:"written"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Publisher fans a report out to every sink in parallel.
type Publisher struct {
	sinks   []Sink
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a publisher. metrics may be nil.
func NewPublisher(metrics *observability.Metrics, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, metrics: metrics, logger: slog.Default()}
}

// Sinks returns the configured sink names.
func (p *Publisher) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish runs every sink against r. All sinks run to completion; the first
// failure is returned alongside the per-sink results, in sink order.
func (p *Publisher) Publish(ctx context.Context, r *scan.Report) ([]Result, error) {
	if r == nil {
		return nil, fmt.Errorf("publish: nil report")
	}
	results := make([]Result, len(p.sinks))
	var g errgroup.Group
	for i, sink := range p.sinks {
		g.Go(func() error {
			res, err := p.publishOne(ctx, sink, r)
			results[i] = res
			return err
		})
	}
	err := g.Wait()
	return results, err
}

func (p *Publisher) publishOne(ctx context.Context, sink Sink, r *scan.Report) (Result, error) {
	name := sink.Name()
	ctx, span := observability.StartPublishSpan(ctx, name, len(r.Variables))
	defer span.End()

	start := time.Now()
	written, err := sink.Publish(ctx, r)
	duration := time.Since(start)

	observability.RecordError(span, err)
	p.metrics.RecordPublish(name, duration, err)
	observability.Audit().LogPublish(ctx, name, written, duration, err)

	res := Result{Sink: name, Written: written, Duration: duration}
	if err != nil {
		p.logger.Error("Publish failed", "sink", name, "error", err)
		res.Error = err.Error()
		return res, fmt.Errorf("publish to %s: %w", name, err)
	}
	observability.RecordPublishResult(span, written)
	p.logger.Info("Published report", "sink", name, "written", written, "duration", duration)
	return res, nil
}
