package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/varnet/internal/config"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

const fixturePath = "../document/testdata/tokens.json"

type recordingSink struct {
	name    string
	err     error
	reports []*scan.Report
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, r *scan.Report) (int, error) {
	s.reports = append(s.reports, r)
	if s.err != nil {
		return 0, s.err
	}
	return len(r.Variables), nil
}

func TestSetDependencies(t *testing.T) {
	p := publish.NewPublisher(nil)
	SetDependencies(&Dependencies{Publisher: p, LookupCacheSize: 16})
	t.Cleanup(func() { SetDependencies(nil) })

	if deps.Publisher != p {
		t.Error("SetDependencies did not set publisher correctly")
	}
	if deps.LookupCacheSize != 16 {
		t.Errorf("expected cache size 16, got %d", deps.LookupCacheSize)
	}

	SetDependencies(nil)
	if deps == nil {
		t.Fatal("SetDependencies(nil) should install empty dependencies")
	}
}

func TestCensusActivity(t *testing.T) {
	result, err := CensusActivity(context.Background(), ScanInput{DocumentPath: fixturePath})
	if err != nil {
		t.Fatalf("CensusActivity failed: %v", err)
	}

	want := map[string]int{"COLOR": 2, "FLOAT": 1, "STRING": 0, "BOOLEAN": 1}
	for typ, n := range want {
		if result.TypeCounts[typ] != n {
			t.Errorf("expected %s=%d, got %d", typ, n, result.TypeCounts[typ])
		}
	}
	if result.Total != 4 {
		t.Errorf("expected total 4, got %d", result.Total)
	}
}

func TestCensusActivity_MissingDocument(t *testing.T) {
	_, err := CensusActivity(context.Background(), ScanInput{DocumentPath: filepath.Join(t.TempDir(), "none.json")})
	if err == nil {
		t.Fatal("expected error for missing document")
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected application error, got %T", err)
	}
	if appErr.Type() != ErrTypeDocument {
		t.Errorf("expected type %s, got %s", ErrTypeDocument, appErr.Type())
	}
	if !appErr.NonRetryable() {
		t.Error("document errors should not be retried")
	}
}

func TestScanActivity_DefaultTypes(t *testing.T) {
	result, err := ScanActivity(context.Background(), ScanInput{DocumentPath: fixturePath})
	if err != nil {
		t.Fatalf("ScanActivity failed: %v", err)
	}
	if result.Variables != 2 {
		t.Errorf("expected 2 COLOR variables, got %d", result.Variables)
	}
	if result.AliasEdges != 2 {
		t.Errorf("expected 2 alias edges, got %d", result.AliasEdges)
	}

	var report scan.Report
	if err := json.Unmarshal([]byte(result.ReportJSON), &report); err != nil {
		t.Fatalf("ReportJSON is not valid JSON: %v", err)
	}
	brand := report.Variable("v-brand")
	if brand == nil {
		t.Fatal("expected v-brand in report")
	}
	if brand.TotalUsage != 3 {
		t.Errorf("expected total usage 3, got %d", brand.TotalUsage)
	}
}

func TestScanActivity_SelectedTypes(t *testing.T) {
	result, err := ScanActivity(context.Background(), ScanInput{
		DocumentPath: fixturePath,
		Types:        []string{"float"},
	})
	if err != nil {
		t.Fatalf("ScanActivity failed: %v", err)
	}
	if result.Variables != 1 {
		t.Errorf("expected 1 FLOAT variable, got %d", result.Variables)
	}
	if result.AliasEdges != 0 {
		t.Errorf("expected no alias edges, got %d", result.AliasEdges)
	}
}

func TestPublishActivity_NoSinks(t *testing.T) {
	SetDependencies(nil)

	result, err := PublishActivity(context.Background(), `{"variables":[]}`)
	if err != nil {
		t.Fatalf("PublishActivity failed: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one error message, got %v", result.Errors)
	}
}

func TestPublishActivity_Sinks(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("unreachable")}
	SetDependencies(&Dependencies{Publisher: publish.NewPublisher(nil, good, bad)})
	t.Cleanup(func() { SetDependencies(nil) })

	scanned, err := ScanActivity(context.Background(), ScanInput{DocumentPath: fixturePath})
	if err != nil {
		t.Fatalf("ScanActivity failed: %v", err)
	}

	result, err := PublishActivity(context.Background(), scanned.ReportJSON)
	if err != nil {
		t.Fatalf("PublishActivity failed: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	if result.Results[0].Written != 2 {
		t.Errorf("expected 2 written to good sink, got %d", result.Results[0].Written)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "bad: unreachable" {
		t.Errorf("expected bad sink error, got %v", result.Errors)
	}
	if len(good.reports) != 1 || len(good.reports[0].Variables) != 2 {
		t.Error("expected good sink to receive the decoded report")
	}
}

func TestPublishActivity_InvalidReport(t *testing.T) {
	SetDependencies(&Dependencies{Publisher: publish.NewPublisher(nil, &recordingSink{name: "s"})})
	t.Cleanup(func() { SetDependencies(nil) })

	if _, err := PublishActivity(context.Background(), "not json"); err == nil {
		t.Fatal("expected error for invalid report JSON")
	}
}

func TestClientOptions_APIKey(t *testing.T) {
	cfg := &config.Config{Temporal: config.TemporalConfig{Host: "temporal:7233", Namespace: "design"}}

	opts, err := ClientOptions(t.Context(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.HostPort != "temporal:7233" || opts.Namespace != "design" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Credentials != nil {
		t.Error("no api key configured, credentials should be nil")
	}

	t.Setenv("VARNET_TEMPORAL_API_KEY", "key")
	opts, err = ClientOptions(t.Context(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Credentials == nil {
		t.Error("expected api key credentials")
	}

	cfg.Secrets.Provider = "kms"
	if _, err := ClientOptions(t.Context(), cfg, slog.Default()); err == nil {
		t.Error("expected error for unknown secrets provider")
	}
}
