package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// ErrTypeDocument is the application error type of snapshot and provider
// failures.
const ErrTypeDocument = "DocumentError"

// CensusResult is the serializable census passed back to the workflow.
type CensusResult struct {
	TypeCounts map[string]int
	Total      int
}

// ActivityResult is the serializable scan result passed between activities.
type ActivityResult struct {
	ReportJSON string
	Variables  int
	Bindings   int
	AliasEdges int
}

// PublishResult reports every sink outcome.
type PublishResult struct {
	Results []publish.Result
	Errors  []string
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Publisher       *publish.Publisher
	Metrics         *observability.Metrics
	LookupCacheSize int
}

var deps = &Dependencies{}

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d == nil {
		d = &Dependencies{}
	}
	deps = d
}

func newService(ctx context.Context, input ScanInput) (*scan.Service, error) {
	provider, err := document.NewFileProvider(input.DocumentPath)
	if err != nil {
		observability.Audit().LogDocumentLoad(ctx, input.DocumentPath, 0, 0, err)
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeDocument, err)
	}
	observability.Audit().LogDocumentLoad(ctx, input.DocumentPath,
		len(provider.Document().Variables), len(provider.Document().Collections), nil)
	return scan.NewService(provider,
		scan.WithMetrics(deps.Metrics),
		scan.WithLookupCacheSize(deps.LookupCacheSize),
	), nil
}

func documentError(err error) error {
	if errors.Is(err, scan.ErrProvider) {
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeDocument, err)
	}
	return err
}

func CensusActivity(ctx context.Context, input ScanInput) (CensusResult, error) {
	svc, err := newService(ctx, input)
	if err != nil {
		return CensusResult{}, err
	}
	counts, err := svc.Census(ctx)
	if err != nil {
		return CensusResult{}, documentError(err)
	}

	out := CensusResult{TypeCounts: make(map[string]int, len(counts)), Total: counts.Total()}
	for t, n := range counts {
		out.TypeCounts[string(t)] = n
	}
	observability.Audit().LogCensus(ctx, out.TypeCounts)
	return out, nil
}

func ScanActivity(ctx context.Context, input ScanInput) (ActivityResult, error) {
	svc, err := newService(ctx, input)
	if err != nil {
		return ActivityResult{}, err
	}

	types := make([]document.VariableType, len(input.Types))
	for i, t := range input.Types {
		types[i] = document.ParseVariableType(t)
	}
	report, err := svc.Scan(ctx, scan.ScanOptions{Types: types})
	if err != nil {
		observability.Audit().LogScanError(ctx, input.Types, err)
		return ActivityResult{}, documentError(err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal report: %w", err)
	}
	return ActivityResult{
		ReportJSON: string(data),
		Variables:  report.Stats.VariablesSelected,
		Bindings:   report.Stats.Bindings,
		AliasEdges: report.Stats.AliasEdges,
	}, nil
}

func PublishActivity(ctx context.Context, reportJSON string) (PublishResult, error) {
	if deps.Publisher == nil {
		return PublishResult{Errors: []string{"no publish sinks configured"}}, nil
	}

	var report scan.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return PublishResult{}, temporal.NewNonRetryableApplicationError("decode report", "ReportError", err)
	}

	results, err := deps.Publisher.Publish(ctx, &report)
	out := PublishResult{Results: results}
	for _, r := range results {
		if r.Error != "" {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", r.Sink, r.Error))
		}
	}
	if err != nil && len(out.Errors) == 0 {
		return out, err
	}
	return out, nil
}
