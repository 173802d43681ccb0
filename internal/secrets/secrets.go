// Package secrets resolves backend credentials from the environment, a local
// JSON file or HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Keys of the credentials varnet looks up.
const (
	SecretGraphPassword  = "graph_password"
	SecretTemporalAPIKey = "temporal_api_key"
)

// DefaultEnvPrefix prefixes secret keys read from the environment.
const DefaultEnvPrefix = "VARNET_"

// ErrNotFound is returned when no provider holds a key.
var ErrNotFound = errors.New("secret not found")

// Provider is a read-only secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config selects the secret backend.
type Config struct {
	// Provider is one of "env", "file" or "vault".
	Provider  string      `mapstructure:"provider"`
	EnvPrefix string      `mapstructure:"env_prefix"`
	File      string      `mapstructure:"file"`
	Vault     VaultConfig `mapstructure:"vault"`
}

// VaultConfig locates a KV v2 secret holding one field per key.
type VaultConfig struct {
	Address string        `mapstructure:"address"`
	Token   string        `mapstructure:"token"`
	Mount   string        `mapstructure:"mount"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Manager reads secrets from a primary provider and falls back to the
// environment. Hits are cached for the life of the manager.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a manager for cfg. A nil cfg reads the environment only.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	env := NewEnvProvider(cfg.EnvPrefix)

	var primary, fallback Provider = nil, env
	switch strings.ToLower(cfg.Provider) {
	case "", "env":
		primary, fallback = env, nil
	case "file":
		p, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		primary = p
	case "vault":
		p, err := NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("create vault provider: %w", err)
		}
		primary = p
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}

	return &Manager{primary: primary, fallback: fallback, cache: make(map[string]string)}, nil
}

// Source names the primary provider.
func (m *Manager) Source() string { return m.primary.Name() }

// Get retrieves a secret, trying the primary provider then the environment.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	var errs []error
	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Resolve returns configured when it is set and the secret for key
// otherwise. A missing secret resolves to the empty string.
func (m *Manager) Resolve(ctx context.Context, key, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	val, err := m.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return val, err
}

// EnvProvider reads secrets from environment variables named prefix+KEY.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}
