package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/qualitygate"
	"github.com/efebarandurmaz/varnet/internal/secrets"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate_Empty(t *testing.T) {
	cfg := &Config{}
	warnings := cfg.Validate()
	if len(warnings) != 0 {
		t.Errorf("empty config should have no warnings, got %v", warnings)
	}
}

func TestValidate_UnknownScanType(t *testing.T) {
	cfg := &Config{Scan: ScanConfig{Types: []string{"color", "date"}}}
	warnings := cfg.Validate()
	if !hasWarning(warnings, "'DATE'") {
		t.Errorf("expected warning about DATE, got %v", warnings)
	}
	if hasWarning(warnings, "'COLOR'") {
		t.Error("COLOR is a recognized type")
	}
}

func TestValidate_SampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want bool // true = should warn
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"max", 1.0, false},
		{"negative", -0.1, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Tracing: TracingConfig{SampleRate: tt.rate}}
			if got := hasWarning(cfg.Validate(), "sample_rate"); got != tt.want {
				t.Errorf("sample_rate=%.1f: hasWarn=%v, want=%v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestValidate_GraphWithoutUsername(t *testing.T) {
	cfg := &Config{Graph: GraphConfig{URI: "neo4j://localhost:7687"}}
	if !hasWarning(cfg.Validate(), "username") {
		t.Error("expected warning about missing username")
	}
}

func TestValidate_NegativeLimits(t *testing.T) {
	cfg := &Config{
		Scan:   ScanConfig{LookupCacheSize: -1},
		Server: ServerConfig{RateLimit: -5},
	}
	warnings := cfg.Validate()
	if !hasWarning(warnings, "lookup_cache_size") {
		t.Error("expected warning about lookup_cache_size")
	}
	if !hasWarning(warnings, "rate_limit") {
		t.Error("expected warning about rate_limit")
	}
}

func TestValidate_Secrets(t *testing.T) {
	tests := []struct {
		name string
		cfg  secrets.Config
		want bool
	}{
		{"env", secrets.Config{Provider: "env"}, false},
		{"file without path", secrets.Config{Provider: "file"}, true},
		{"vault without token", secrets.Config{Provider: "vault", Vault: secrets.VaultConfig{Address: "http://vault"}}, true},
		{"unknown", secrets.Config{Provider: "kms"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Secrets: tt.cfg}
			if got := hasWarning(cfg.Validate(), "secrets"); got != tt.want {
				t.Errorf("hasWarn=%v, want=%v", got, tt.want)
			}
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "verbose"}}
	if !hasWarning(cfg.Validate(), "log level") {
		t.Error("expected warning about unknown log level")
	}
}

func TestValidate_SmallWindow(t *testing.T) {
	cfg := &Config{UI: UIConfig{Width: 300, Height: 500}}
	if !hasWarning(cfg.Validate(), "ui size") {
		t.Error("expected warning about ui size")
	}
}

func TestUIConfig_Clamp(t *testing.T) {
	tests := []struct {
		in, want UIConfig
	}{
		{UIConfig{Width: 800, Height: 600}, UIConfig{Width: 800, Height: 600}},
		{UIConfig{Width: 100, Height: 100}, UIConfig{Width: 600, Height: 400}},
		{UIConfig{Width: 1200, Height: 200}, UIConfig{Width: 1200, Height: 400}},
		{UIConfig{}, UIConfig{Width: 600, Height: 400}},
	}
	for _, tt := range tests {
		if got := tt.in.Clamp(); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScanConfig_VariableTypes(t *testing.T) {
	got := ScanConfig{Types: []string{" color", "", "Float "}}.VariableTypes()
	want := []document.VariableType{document.TypeColor, document.TypeFloat}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "shown" || entry["key"] != "value" {
		t.Errorf("unexpected entry %v", entry)
	}

	buf.Reset()
	LogConfig{}.NewLogger(&buf).Info("text", "n", 1)
	if !strings.Contains(buf.String(), "msg=text") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if len(cfg.Scan.Types) != 1 || cfg.Scan.Types[0] != "COLOR" {
		t.Errorf("expected default scan types [COLOR], got %v", cfg.Scan.Types)
	}
	if cfg.Scan.LookupCacheSize != document.DefaultLookupCacheSize {
		t.Errorf("expected default cache size, got %d", cfg.Scan.LookupCacheSize)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected 30s shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Snapshot.Dir != ".varnet" {
		t.Errorf("expected snapshot dir .varnet, got %s", cfg.Snapshot.Dir)
	}
	if cfg.Secrets.Provider != "env" || cfg.Secrets.Vault.Path != "varnet" {
		t.Errorf("unexpected secrets defaults %+v", cfg.Secrets)
	}
	if cfg.Check != *qualitygate.DefaultConfig() {
		t.Errorf("expected default gates, got %+v", cfg.Check)
	}
	if cfg.UI != (UIConfig{Width: 800, Height: 600}) {
		t.Errorf("expected 800x600 window, got %v", cfg.UI)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "varnet.yaml")
	content := `
document:
  path: tokens.json
scan:
  types: [COLOR, FLOAT]
server:
  addr: ":9090"
graph:
  uri: neo4j://localhost:7687
  username: neo4j
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VARNET_SERVER_ADDR", ":7070")
	t.Setenv("VARNET_GRAPH_PASSWORD", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Document.Path != "tokens.json" {
		t.Errorf("expected document path from file, got %s", cfg.Document.Path)
	}
	if len(cfg.Scan.Types) != 2 {
		t.Errorf("expected two scan types, got %v", cfg.Scan.Types)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected env to override file, got %s", cfg.Server.Addr)
	}
	if cfg.Graph.Password != "secret" {
		t.Errorf("expected password from env, got %q", cfg.Graph.Password)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("VARNET_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("VARNET_LOG_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected level from .env, got %s", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
