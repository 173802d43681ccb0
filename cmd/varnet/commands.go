package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/efebarandurmaz/varnet/internal/config"
	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/metrics"
	"github.com/efebarandurmaz/varnet/internal/netgraph"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/scan"
	"github.com/efebarandurmaz/varnet/internal/server"
	temporalmod "github.com/efebarandurmaz/varnet/internal/temporal"
	"github.com/efebarandurmaz/varnet/internal/tui"
	"github.com/efebarandurmaz/varnet/internal/vector"
	vectorqdrant "github.com/efebarandurmaz/varnet/internal/vector/qdrant"
)

var errNoDocument = errors.New("no document: pass --input or set document.path")

// env is the state shared by every command: configuration, logger and the
// loaded document.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *document.MemoryProvider
	metrics  *observability.Metrics
}

func loadConfig(configPath, inputPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if inputPath != "" {
		cfg.Document.Path = inputPath
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func setup(ctx context.Context, configPath, inputPath string) (*env, error) {
	cfg, logger, err := loadConfig(configPath, inputPath)
	if err != nil {
		return nil, err
	}
	if cfg.Document.Path == "" {
		return nil, errNoDocument
	}

	if cfg.Audit.Enabled {
		if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
			Enabled:    true,
			OutputPath: cfg.Audit.Path,
		}); err != nil {
			return nil, fmt.Errorf("audit logger: %w", err)
		}
	}

	provider, err := document.NewFileProvider(cfg.Document.Path)
	if err != nil {
		observability.Audit().LogDocumentLoad(ctx, cfg.Document.Path, 0, 0, err)
		return nil, err
	}
	doc := provider.Document()
	observability.Audit().LogDocumentLoad(ctx, cfg.Document.Path, len(doc.Variables), len(doc.Collections), nil)
	logger.Debug("Document loaded", "path", cfg.Document.Path, "variables", len(doc.Variables), "collections", len(doc.Collections))

	return &env{cfg: cfg, logger: logger, provider: provider, metrics: observability.NewMetrics()}, nil
}

func (e *env) service() *scan.Service {
	return scan.NewService(e.provider,
		scan.WithLogger(e.logger),
		scan.WithMetrics(e.metrics),
		scan.WithLookupCacheSize(e.cfg.Scan.LookupCacheSize),
	)
}

// scanTypes returns the types named on the command line, or the configured
// default selection.
func (e *env) scanTypes(flagTypes []string) []document.VariableType {
	if len(flagTypes) == 0 {
		return e.cfg.Scan.VariableTypes()
	}
	return config.ScanConfig{Types: flagTypes}.VariableTypes()
}

func (e *env) scan(ctx context.Context, flagTypes []string) (*scan.Report, error) {
	types := e.scanTypes(flagTypes)
	report, err := e.service().Scan(ctx, scan.ScanOptions{Types: types})
	if err != nil {
		observability.Audit().LogScanError(ctx, typeNames(types), err)
		return nil, err
	}
	observability.Audit().LogScanComplete(ctx, typeNames(report.Stats.SelectedTypes),
		report.Stats.VariablesSelected, report.Stats.Bindings, report.Stats.AliasEdges, report.Stats.Duration)
	return report, nil
}

func runCensus(ctx context.Context, configPath, inputPath string, asJSON bool) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	counts, err := e.service().Census(ctx)
	if err != nil {
		return err
	}
	details := make(map[string]int, len(counts))
	for t, n := range counts {
		details[string(t)] = n
	}
	observability.Audit().LogCensus(ctx, details)

	if asJSON {
		return writeJSON(os.Stdout, server.CensusResponse{TypeCounts: counts, Total: counts.Total()})
	}
	names := make([]string, 0, len(details))
	for t := range details {
		names = append(names, t)
	}
	sort.Strings(names)
	for _, t := range names {
		fmt.Printf("  %-10s %d\n", t, details[t])
	}
	fmt.Printf("  %-10s %d\n", "TOTAL", counts.Total())
	return nil
}

type scanOptions struct {
	types       []string
	format      string
	output      string
	showMetrics bool
	jsonMetrics bool
}

func runScan(ctx context.Context, configPath, inputPath string, opts scanOptions) error {
	if !validFormat(opts.format) {
		return fmt.Errorf("unknown format %q (want one of %s)", opts.format, strings.Join(formats, ", "))
	}

	start := time.Now()
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	m := metrics.New(e.cfg.Document.Path)
	m.AddStage("load", time.Since(start), 0)

	start = time.Now()
	report, err := e.scan(ctx, opts.types)
	if err != nil {
		m.AddStage("scan", time.Since(start), 1)
		return err
	}
	m.AddStage("scan", time.Since(start), 0)

	start = time.Now()
	g := netgraph.Analyze(report)
	data, err := render(report, g, opts.format)
	if err != nil {
		m.AddStage("render", time.Since(start), 1)
		return err
	}
	m.AddStage("render", time.Since(start), 0)

	if err := writeOutput(opts.output, data); err != nil {
		return err
	}
	if opts.output != "" {
		e.logger.Info("Report written", "path", opts.output, "format", opts.format, "variables", len(report.Variables))
	}

	if opts.showMetrics || opts.jsonMetrics {
		m.CollectScan(report)
		m.CollectNetwork(g)
		m.CollectOutput(opts.format, len(data))
		m.Finish(nil)
		return printMetrics(m, opts.jsonMetrics)
	}
	return nil
}

func printMetrics(m *metrics.RunMetrics, asJSON bool) error {
	if !asJSON {
		m.PrintSummary(os.Stderr)
		return nil
	}
	data, err := m.JSON()
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	fmt.Fprintln(os.Stderr, string(data))
	return nil
}

func runNodes(ctx context.Context, configPath, inputPath, variable string, flagTypes []string) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	report, err := e.scan(ctx, flagTypes)
	if err != nil {
		return err
	}

	v := report.Variable(variable)
	if v == nil {
		v = report.FindByName(variable)
	}
	if v == nil {
		return fmt.Errorf("variable %q not found among scanned types %v", variable, typeNames(report.Stats.SelectedTypes))
	}

	pages, err := e.provider.Pages(ctx)
	if err != nil {
		return err
	}
	located := document.FindNodes(pages, v.NodeIDs)

	fmt.Printf("%s (%s): %d direct, %d total\n\n", v.Name, v.Type, v.DirectUsage, v.TotalUsage)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tPAGE")
	for _, l := range located {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Node.ID, l.Node.Kind, l.Node.Name, l.Page.Name)
	}
	return tw.Flush()
}

func runBrowse(ctx context.Context, configPath, inputPath string, flagTypes []string, marksPath string) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	report, err := e.scan(ctx, flagTypes)
	if err != nil {
		return err
	}

	session, err := tui.RunBrowse(tui.NewBrowseSession(report))
	if err != nil {
		return err
	}
	if marksPath == "" {
		return nil
	}
	if err := tui.SaveMarks(session, marksPath); err != nil {
		return err
	}
	e.logger.Info("Marks saved", "path", marksPath)
	return nil
}

func runServe(ctx context.Context, configPath, inputPath string) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	cfg := e.cfg

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "varnet",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	backends, err := publish.OpenBackends(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	api := server.NewAPI(server.APIConfig{
		Service:      e.service(),
		DefaultTypes: cfg.Scan.VariableTypes(),
		Provider:     e.provider,
		Publisher:    backends.Publisher(e.metrics),
		Metrics:      e.metrics,
		Logger:       e.logger,
		UI:           cfg.UI,
		RateLimit:    cfg.Server.RateLimit,
		Burst:        cfg.Server.Burst,
	})

	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		&server.ShutdownConfig{Timeout: cfg.Server.ShutdownTimeout},
	)
	gs.Health.RegisterCheck("document", server.DocumentHealthChecker(func(ctx context.Context) error {
		_, err := e.provider.Variables(ctx)
		return err
	}))
	if backends.Graph != nil {
		gs.Health.RegisterCheck("neo4j", server.SinkHealthChecker("neo4j", backends.Graph.Ping))
		gs.Shutdown.Register(server.GraphShutdownHook(backends.Graph.Close))
	}
	if backends.Colors != nil {
		gs.Health.RegisterCheck("qdrant", server.SinkHealthChecker("qdrant", backends.Colors.Ping))
		gs.Shutdown.Register(server.VectorShutdownHook(backends.Colors.Close))
	}
	gs.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	gs.Shutdown.Register(server.AuditLoggerShutdownHook(observability.Audit().Close))

	if err := gs.Start(cfg.Server.Addr, api.Handler()); err != nil {
		return err
	}
	gs.Wait()
	return nil
}

func runPublish(ctx context.Context, configPath, inputPath string, flagTypes []string) error {
	e, err := setup(ctx, configPath, inputPath)
	if err != nil {
		return err
	}
	backends, err := publish.OpenBackends(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("Closing backends failed", "error", err)
		}
	}()

	publisher := backends.Publisher(e.metrics)
	if publisher == nil {
		return errors.New("no publish sinks configured: set graph.uri or vector.host")
	}

	m := metrics.New(e.cfg.Document.Path)
	report, err := e.scan(ctx, flagTypes)
	if err != nil {
		return err
	}
	m.CollectScan(report)

	results, err := publisher.Publish(ctx, report)
	m.AddPublish(results)
	var errs []string
	for _, r := range results {
		if r.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", r.Sink, r.Error))
		}
	}
	m.Finish(errs)
	m.PrintSummary(os.Stderr)
	return err
}

func runSubmit(ctx context.Context, configPath, inputPath string, flagTypes []string, publishReport, wait bool) error {
	cfg, logger, err := loadConfig(configPath, inputPath)
	if err != nil {
		return err
	}
	if cfg.Document.Path == "" {
		return errNoDocument
	}

	c, err := temporalmod.Dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	types := flagTypes
	if len(types) == 0 {
		types = cfg.Scan.Types
	}
	run, err := temporalmod.SubmitScan(ctx, c, cfg.Temporal.TaskQueue, temporalmod.ScanInput{
		DocumentPath: cfg.Document.Path,
		Types:        types,
		Publish:      publishReport,
	})
	if err != nil {
		return err
	}
	logger.Info("Workflow submitted", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	if !wait {
		fmt.Println(run.GetID())
		return nil
	}

	out, err := temporalmod.AwaitScan(ctx, run)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, out)
}

func runNearest(ctx context.Context, configPath, hex string, topK int) error {
	cfg, _, err := loadConfig(configPath, "")
	if err != nil {
		return err
	}
	if cfg.Vector.Host == "" {
		return errors.New("vector.host is not configured")
	}

	repo, err := vectorqdrant.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return err
	}
	defer repo.Close()

	results, err := vector.NewIndexer(repo).Nearest(ctx, hex, topK)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE\tNAME\tMODE\tHEX\tALIAS OF")
	for _, r := range results {
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\t%s\n", r.Score,
			r.Metadata["name"], r.Metadata["mode"], r.Metadata["hex"], r.Metadata["alias_of"])
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func typeNames(types []document.VariableType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
