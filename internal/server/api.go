package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/efebarandurmaz/varnet/internal/config"
	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// ErrInvalidRequest marks requests rejected before reaching the scanner.
var ErrInvalidRequest = errors.New("invalid request")

const maxBodyBytes = 1 << 16

// ScanRequest is the body of POST /api/scan and POST /api/publish.
type ScanRequest struct {
	Types []string `json:"types" validate:"max=16,dive,required,max=32,alphanum"`
}

// VariableTypes returns the requested types, normalized.
func (r ScanRequest) VariableTypes() []document.VariableType {
	out := make([]document.VariableType, len(r.Types))
	for i, t := range r.Types {
		out[i] = document.ParseVariableType(t)
	}
	return out
}

// CensusResponse is the body of GET /api/census.
type CensusResponse struct {
	TypeCounts scan.TypeCounts `json:"typeCounts"`
	Total      int             `json:"total"`
}

// NodeInfo locates one node that uses a variable.
type NodeInfo struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     document.NodeKind `json:"type"`
	PageID   string            `json:"page_id"`
	PageName string            `json:"page_name"`
}

// PublishResponse is the body of POST /api/publish.
type PublishResponse struct {
	Variables int              `json:"variables"`
	Results   []publish.Result `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// APIConfig wires the API to its collaborators. Publisher, Metrics and Logger
// are optional. DefaultTypes is scanned when a request names no types.
type APIConfig struct {
	Service      *scan.Service
	DefaultTypes []document.VariableType
	Provider     document.Provider
	Publisher    *publish.Publisher
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	UI           config.UIConfig
	RateLimit    float64
	Burst        int
}

// API serves census, scan and lookup requests.
type API struct {
	service      *scan.Service
	defaultTypes []document.VariableType
	provider     document.Provider
	publisher    *publish.Publisher
	metrics      *observability.Metrics
	logger       *slog.Logger
	ui           config.UIConfig
	limiter      *rate.Limiter
	validate     *validator.Validate

	// scans run one at a time
	scanMu sync.Mutex
}

// NewAPI creates the request handler.
func NewAPI(cfg APIConfig) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		service:      cfg.Service,
		defaultTypes: cfg.DefaultTypes,
		provider:     cfg.Provider,
		publisher:    cfg.Publisher,
		metrics:      cfg.Metrics,
		logger:       logger,
		ui:           cfg.UI.Clamp(),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return a
}

// Handler returns the API routes wrapped in rate limiting and request logging.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/census", a.handleCensus)
	mux.HandleFunc("POST /api/scan", a.handleScan)
	mux.HandleFunc("GET /api/nodes", a.handleNodes)
	mux.HandleFunc("GET /api/ui", a.handleUI)
	mux.HandleFunc("POST /api/publish", a.handlePublish)
	mux.Handle("GET /metrics", a.metrics.Handler())
	return a.instrument(a.rateLimit(mux))
}

func (a *API) handleCensus(w http.ResponseWriter, r *http.Request) {
	counts, err := a.service.Census(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	observability.Audit().LogCensus(r.Context(), censusDetails(counts))
	writeJSON(w, http.StatusOK, CensusResponse{TypeCounts: counts, Total: counts.Total()})
}

func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	req, err := a.decodeScanRequest(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	report, err := a.scan(r, req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handlePublish(w http.ResponseWriter, r *http.Request) {
	if a.publisher == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "no publish sinks configured"})
		return
	}
	req, err := a.decodeScanRequest(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	report, err := a.scan(r, req)
	if err != nil {
		a.fail(w, err)
		return
	}
	results, err := a.publisher.Publish(r.Context(), report)
	resp := PublishResponse{Variables: len(report.Variables), Results: results}
	if err != nil {
		a.logger.Error("Publish incomplete", "error", err)
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleNodes(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, raw := range r.URL.Query()["id"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		a.fail(w, fmt.Errorf("%w: at least one id is required", ErrInvalidRequest))
		return
	}
	pages, err := a.provider.Pages(r.Context())
	if err != nil {
		a.fail(w, fmt.Errorf("%w: list pages: %w", scan.ErrProvider, err))
		return
	}
	located := document.FindNodes(pages, ids)
	out := make([]NodeInfo, len(located))
	for i, l := range located {
		out[i] = NodeInfo{ID: l.Node.ID, Name: l.Node.Name, Kind: l.Node.Kind, PageID: l.Page.ID, PageName: l.Page.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleUI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.ui)
}

func (a *API) scan(r *http.Request, req ScanRequest) (*scan.Report, error) {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	types := req.VariableTypes()
	if len(types) == 0 {
		types = a.defaultTypes
	}
	ctx := r.Context()
	report, err := a.service.Scan(ctx, scan.ScanOptions{Types: types})
	if err != nil {
		observability.Audit().LogScanError(ctx, req.Types, err)
		return nil, err
	}
	observability.Audit().LogScanComplete(ctx, typeNames(report.Stats.SelectedTypes),
		report.Stats.VariablesSelected, report.Stats.Bindings, report.Stats.AliasEdges, report.Stats.Duration)
	return report, nil
}

func (a *API) decodeScanRequest(r *http.Request) (ScanRequest, error) {
	var req ScanRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := a.validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return req, nil
}

// fail maps err to a status code and writes the error body.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, scan.ErrProvider):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("Request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		a.metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), rec.status, duration)
		a.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration,
		)
	})
}

var knownRoutes = map[string]bool{
	"/api/census":  true,
	"/api/scan":    true,
	"/api/nodes":   true,
	"/api/ui":      true,
	"/api/publish": true,
	"/metrics":     true,
}

// routeLabel keeps the path metric label bounded.
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

func censusDetails(counts scan.TypeCounts) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	return out
}

func typeNames(types []document.VariableType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
