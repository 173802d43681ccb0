package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/qualitygate"
	"github.com/efebarandurmaz/varnet/internal/secrets"
)

// Config holds all application configuration.
type Config struct {
	Document DocumentConfig         `mapstructure:"document"`
	Scan     ScanConfig             `mapstructure:"scan"`
	Server   ServerConfig           `mapstructure:"server"`
	Graph    GraphConfig            `mapstructure:"graph"`
	Vector   VectorConfig           `mapstructure:"vector"`
	Temporal TemporalConfig         `mapstructure:"temporal"`
	Tracing  TracingConfig          `mapstructure:"tracing"`
	Audit    AuditConfig            `mapstructure:"audit"`
	Snapshot SnapshotConfig         `mapstructure:"snapshot"`
	Check    qualitygate.GateConfig `mapstructure:"check"`
	Secrets  secrets.Config         `mapstructure:"secrets"`
	Log      LogConfig              `mapstructure:"log"`
	UI       UIConfig               `mapstructure:"ui"`
}

// DocumentConfig locates the document snapshot to scan.
type DocumentConfig struct {
	Path string `mapstructure:"path"`
}

// ScanConfig holds scan defaults.
type ScanConfig struct {
	// Types selected when a request names none.
	Types []string `mapstructure:"types"`
	// LookupCacheSize bounds the per-scan alias lookup cache.
	LookupCacheSize int `mapstructure:"lookup_cache_size"`
}

// VariableTypes returns the configured default selection, normalized.
func (c ScanConfig) VariableTypes() []document.VariableType {
	out := make([]document.VariableType, 0, len(c.Types))
	for _, t := range c.Types {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, document.ParseVariableType(t))
		}
	}
	return out
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst           int           `mapstructure:"burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SnapshotConfig locates the scan history store.
type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c LogConfig) level() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Minimum window size accepted by the presentation layer.
const (
	MinWindowWidth  = 600
	MinWindowHeight = 400
)

// UIConfig is the window size handed to the presentation layer.
type UIConfig struct {
	Width  int `mapstructure:"width" json:"width"`
	Height int `mapstructure:"height" json:"height"`
}

// Clamp raises the size to the minimum window size.
func (u UIConfig) Clamp() UIConfig {
	return UIConfig{Width: max(u.Width, MinWindowWidth), Height: max(u.Height, MinWindowHeight)}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	for _, t := range c.Scan.VariableTypes() {
		if !t.Known() {
			warnings = append(warnings, fmt.Sprintf("scan type '%s' is not a recognized variable type", t))
		}
	}

	if c.Scan.LookupCacheSize < 0 {
		warnings = append(warnings, fmt.Sprintf("scan lookup_cache_size %d is negative", c.Scan.LookupCacheSize))
	}

	if c.Server.RateLimit < 0 {
		warnings = append(warnings, fmt.Sprintf("server rate_limit %.2f is negative", c.Server.RateLimit))
	}

	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph uri is configured but username is empty")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	switch strings.ToLower(c.Secrets.Provider) {
	case "", "env":
	case "file":
		if c.Secrets.File == "" {
			warnings = append(warnings, "secrets provider is file but secrets.file is empty")
		}
	case "vault":
		if c.Secrets.Vault.Address == "" || c.Secrets.Vault.Token == "" {
			warnings = append(warnings, "secrets provider is vault but address or token is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("secrets provider '%s' is unknown", c.Secrets.Provider))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown, using info", c.Log.Level))
	}

	if c.UI.Width != 0 && c.UI.Height != 0 && (c.UI.Width < MinWindowWidth || c.UI.Height < MinWindowHeight) {
		warnings = append(warnings, fmt.Sprintf("ui size %dx%d is below the %dx%d minimum", c.UI.Width, c.UI.Height, MinWindowWidth, MinWindowHeight))
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("document.path", "")
	v.SetDefault("scan.types", []string{string(document.TypeColor)})
	v.SetDefault("scan.lookup_cache_size", document.DefaultLookupCacheSize)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("vector.host", "")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "varnet_colors")
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "varnet-scans")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "stderr")
	v.SetDefault("snapshot.dir", ".varnet")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.env_prefix", secrets.DefaultEnvPrefix)
	v.SetDefault("secrets.file", "")
	v.SetDefault("secrets.vault.address", "")
	v.SetDefault("secrets.vault.token", "")
	v.SetDefault("secrets.vault.mount", "secret")
	v.SetDefault("secrets.vault.path", "varnet")
	v.SetDefault("secrets.vault.timeout", 10*time.Second)
	gates := qualitygate.DefaultConfig()
	v.SetDefault("check.cycles", gates.Cycles)
	v.SetDefault("check.cycles_severity", gates.CyclesSeverity)
	v.SetDefault("check.max_unused_ratio", gates.MaxUnusedRatio)
	v.SetDefault("check.unused_severity", gates.UnusedSeverity)
	v.SetDefault("check.max_fan_out", gates.MaxFanOut)
	v.SetDefault("check.fan_out_severity", gates.FanOutSeverity)
	v.SetDefault("check.max_alias_depth", gates.MaxAliasDepth)
	v.SetDefault("check.depth_severity", gates.DepthSeverity)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ui.width", 800)
	v.SetDefault("ui.height", 600)
}

// Load reads configuration from an optional file, a .env file in the working
// directory and VARNET_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VARNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
