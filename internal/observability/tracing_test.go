package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "varnet" {
		t.Fatalf("expected service name 'varnet', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestStartScanSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartScanSpan(context.Background(), []string{"COLOR", "FLOAT"})
	RecordScanResult(span, 12, 40, 3)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "scan.run" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	types, ok := attrValue(s.Attributes(), "scan.types")
	if !ok || len(types.AsStringSlice()) != 2 {
		t.Fatalf("expected scan.types with 2 entries, got %v", types)
	}
	vars, _ := attrValue(s.Attributes(), "scan.variables")
	if vars.AsInt64() != 12 {
		t.Fatalf("expected 12 variables, got %d", vars.AsInt64())
	}
	edges, _ := attrValue(s.Attributes(), "scan.alias_edges")
	if edges.AsInt64() != 3 {
		t.Fatalf("expected 3 alias edges, got %d", edges.AsInt64())
	}
}

func TestStartCensusSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartCensusSpan(context.Background())
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 || ended[0].Name() != "scan.census" {
		t.Fatalf("expected one scan.census span, got %d", len(ended))
	}
	kind, _ := attrValue(ended[0].Attributes(), "varnet.span.kind")
	if kind.AsString() != SpanKindCensus {
		t.Fatalf("expected kind %q, got %q", SpanKindCensus, kind.AsString())
	}
}

func TestStartPublishSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartPublishSpan(context.Background(), "neo4j", 5)
	RecordPublishResult(span, 5)
	span.End()

	s := sr.Ended()[0]
	if s.Name() != "publish.neo4j" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	written, _ := attrValue(s.Attributes(), "publish.written")
	if written.AsInt64() != 5 {
		t.Fatalf("expected 5 written, got %d", written.AsInt64())
	}
}

func TestRecordError(t *testing.T) {
	sr := recordSpans(t)

	_, ok := StartCensusSpan(context.Background())
	RecordError(ok, nil)
	ok.End()

	_, failed := StartCensusSpan(context.Background())
	RecordError(failed, errors.New("provider down"))
	failed.End()

	ended := sr.Ended()
	if ended[0].Status().Code == codes.Error {
		t.Fatal("nil error must not mark the span as failed")
	}
	if ended[1].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ended[1].Status().Code)
	}
	if ended[1].Status().Description != "provider down" {
		t.Fatalf("unexpected status description %q", ended[1].Status().Description)
	}
}

func TestNestedSpans(t *testing.T) {
	sr := recordSpans(t)

	ctx, scanSpan := StartScanSpan(context.Background(), []string{"COLOR"})
	_, publishSpan := StartPublishSpan(ctx, "qdrant", 1)
	publishSpan.End()
	scanSpan.End()

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Fatal("publish span should be a child of the scan span")
	}
}

func TestTracerName(t *testing.T) {
	if TracerName != "github.com/efebarandurmaz/varnet" {
		t.Fatalf("unexpected tracer name: %s", TracerName)
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
