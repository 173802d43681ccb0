package secrets

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("VARNET_GRAPH_PASSWORD", "hunter2")
	p := NewEnvProvider("")

	got, err := p.Get(t.Context(), SecretGraphPassword)
	if err != nil || got != "hunter2" {
		t.Fatalf("expected hunter2, got %q (%v)", got, err)
	}
	if _, err := p.Get(t.Context(), "missing_key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	t.Setenv("CI_GRAPH_PASSWORD", "other")
	if got, _ := NewEnvProvider("CI_").Get(t.Context(), SecretGraphPassword); got != "other" {
		t.Errorf("custom prefix ignored, got %q", got)
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"graph_password":"from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := p.Get(t.Context(), SecretGraphPassword); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}

	if err := os.WriteFile(path, []byte(`{"graph_password":"rotated"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got, _ := p.Get(t.Context(), SecretGraphPassword); got != "rotated" {
		t.Errorf("expected rotated, got %q", got)
	}
}

func TestFileProvider_MissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFileProvider(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("missing file should be empty, got %v", err)
	}
	if _, err := p.Get(t.Context(), SecretGraphPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(bad); err == nil {
		t.Error("expected parse error")
	}
	if _, err := NewFileProvider(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestVaultProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/kv/data/design" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":{"data":{"graph_password":"from-vault","port":7687}}}`))
	}))
	defer srv.Close()

	p, err := NewVaultProvider(VaultConfig{Address: srv.URL + "/", Token: "root", Mount: "kv", Path: "design"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := p.Get(t.Context(), SecretGraphPassword); err != nil || got != "from-vault" {
		t.Errorf("expected from-vault, got %q (%v)", got, err)
	}
	if got, _ := p.Get(t.Context(), "port"); got != "7687" {
		t.Errorf("expected non-string value formatted, got %q", got)
	}
	if _, err := p.Get(t.Context(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	wrongPath, _ := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "root"})
	if _, err := wrongPath.Get(t.Context(), SecretGraphPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown path, got %v", err)
	}

	denied, _ := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "nope", Mount: "kv", Path: "design"})
	if _, err := denied.Get(t.Context(), SecretGraphPassword); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a vault error, got %v", err)
	}
}

func TestNewVaultProvider_RequiresAddressAndToken(t *testing.T) {
	if _, err := NewVaultProvider(VaultConfig{Token: "t"}); err == nil {
		t.Error("expected error without address")
	}
	if _, err := NewVaultProvider(VaultConfig{Address: "http://vault"}); err == nil {
		t.Error("expected error without token")
	}
}

func TestManager_FallbackAndCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"graph_password":"from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VARNET_TEMPORAL_API_KEY", "from-env")

	m, err := NewManager(&Config{Provider: "file", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Source() != "file" {
		t.Errorf("expected file source, got %s", m.Source())
	}
	if got, _ := m.Get(t.Context(), SecretGraphPassword); got != "from-file" {
		t.Errorf("expected primary value, got %q", got)
	}
	if got, _ := m.Get(t.Context(), SecretTemporalAPIKey); got != "from-env" {
		t.Errorf("expected env fallback, got %q", got)
	}

	os.Remove(path)
	if got, _ := m.Get(t.Context(), SecretGraphPassword); got != "from-file" {
		t.Errorf("expected cached value, got %q", got)
	}
}

func TestManager_Resolve(t *testing.T) {
	t.Setenv("VARNET_GRAPH_PASSWORD", "from-env")
	m, err := NewManager(nil)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := m.Resolve(t.Context(), SecretGraphPassword, "configured"); got != "configured" {
		t.Errorf("configured value should win, got %q", got)
	}
	if got, _ := m.Resolve(t.Context(), SecretGraphPassword, ""); got != "from-env" {
		t.Errorf("expected secret, got %q", got)
	}
	got, err := m.Resolve(t.Context(), SecretTemporalAPIKey, "")
	if err != nil || got != "" {
		t.Errorf("missing secret should resolve empty, got %q (%v)", got, err)
	}
}

func TestNewManager_Errors(t *testing.T) {
	for _, cfg := range []*Config{
		{Provider: "kms"},
		{Provider: "file"},
		{Provider: "vault"},
	} {
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
