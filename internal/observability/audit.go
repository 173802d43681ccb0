package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventCensus        AuditEventType = "census"
	AuditEventScanComplete  AuditEventType = "scan.complete"
	AuditEventScanError     AuditEventType = "scan.error"
	AuditEventDocumentLoad  AuditEventType = "document.load"
	AuditEventPublish       AuditEventType = "publish"
	AuditEventWorkflowStart AuditEventType = "workflow.start"
	AuditEventWorkflowEnd   AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	Source      string                 `json:"source,omitempty"`
	UserID      string                 `json:"user_id,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger handles audit event logging.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	userID    string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
	UserID     string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		userID:    config.UserID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Fill in defaults
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}
	if event.UserID == "" {
		event.UserID = l.userID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogDocumentLoad logs loading a document snapshot.
func (l *AuditLogger) LogDocumentLoad(ctx context.Context, source string, variables, collections int, err error) {
	event := &AuditEvent{
		EventType: AuditEventDocumentLoad,
		Source:    source,
		Success:   err == nil,
		Message:   fmt.Sprintf("Loaded document %s", source),
		Details: map[string]interface{}{
			"variables":   variables,
			"collections": collections,
		},
	}
	if err != nil {
		event.Message = fmt.Sprintf("Failed to load document %s", source)
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogCensus logs a type census.
func (l *AuditLogger) LogCensus(ctx context.Context, counts map[string]int) {
	l.Log(&AuditEvent{
		EventType: AuditEventCensus,
		Success:   true,
		Message:   "Type census",
		Details: map[string]interface{}{
			"counts": counts,
		},
	})
}

// LogScanComplete logs a successful scan.
func (l *AuditLogger) LogScanComplete(ctx context.Context, types []string, variables, bindings, aliasEdges int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventScanComplete,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Scanned %d variables", variables),
		Details: map[string]interface{}{
			"types":       types,
			"variables":   variables,
			"bindings":    bindings,
			"alias_edges": aliasEdges,
		},
	})
}

// LogScanError logs an abandoned scan.
func (l *AuditLogger) LogScanError(ctx context.Context, types []string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventScanError,
		Success:     false,
		Message:     "Scan failed",
		ErrorDetail: err.Error(),
		Details: map[string]interface{}{
			"types": types,
		},
	})
}

// LogPublish logs an export of a report to an external sink.
func (l *AuditLogger) LogPublish(ctx context.Context, sink string, written int, duration time.Duration, err error) {
	event := &AuditEvent{
		EventType: AuditEventPublish,
		Success:   err == nil,
		Duration:  duration,
		Message:   fmt.Sprintf("Published %d variables to %s", written, sink),
		Details: map[string]interface{}{
			"sink":    sink,
			"written": written,
		},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(ctx context.Context, workflowID, source string, types []string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Source:     source,
		Success:    true,
		Message:    fmt.Sprintf("Workflow started for %s", source),
		Details: map[string]interface{}{
			"types": types,
		},
	})
}

// LogWorkflowEnd logs a workflow completion event.
func (l *AuditLogger) LogWorkflowEnd(ctx context.Context, workflowID string, success bool, duration time.Duration, variables int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    success,
		Duration:   duration,
		Message:    fmt.Sprintf("Workflow completed: variables=%d", variables),
		Details: map[string]interface{}{
			"variables": variables,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		// Return a disabled logger if not initialized
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
