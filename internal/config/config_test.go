package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets every recognized variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		if old, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, old) })
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AuthType != AuthTypeUserManagedIdentity {
		t.Errorf("expected auth type %q, got %q", AuthTypeUserManagedIdentity, cfg.AuthType)
	}
	if cfg.AgentType != "TeamsHandler" {
		t.Errorf("expected default agent type TeamsHandler, got %q", cfg.AgentType)
	}
	if cfg.Port != 3978 {
		t.Errorf("expected default port 3978, got %d", cfg.Port)
	}
	if cfg.TenantID != "" || cfg.ClientID != "" || cfg.ConnectionName != "" {
		t.Errorf("expected empty credentials, got %+v", cfg)
	}
}

func TestLoadDefaultsWhenEnvUnset(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3978 {
		t.Errorf("port: got %d, want 3978", cfg.Port)
	}
	if cfg.AgentType != "TeamsHandler" {
		t.Errorf("agent type: got %q, want TeamsHandler", cfg.AgentType)
	}
	if cfg.StoragePath != "" {
		t.Errorf("storage path: got %q, want empty", cfg.StoragePath)
	}
	if cfg.DiagnosticCommands {
		t.Error("diagnostic commands should be off by default")
	}
	if cfg.ChatChannel {
		t.Error("chat channel should be off by default")
	}
	if cfg.OpenIDMetadata != DefaultOpenIDMetadata {
		t.Errorf("openid metadata: got %q", cfg.OpenIDMetadata)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TENANT_ID", "tenant-1")
	t.Setenv("CLIENT_ID", "client-1")
	t.Setenv("CONNECTION_NAME", "graph")
	t.Setenv("AGENT_TYPE", "CustomHandler")
	t.Setenv("PORT", "8080")
	t.Setenv("DIAGNOSTIC_COMMANDS", "true")
	t.Setenv("CHAT_CHANNEL", "true")
	t.Setenv("OPENID_METADATA", "http://localhost:9000/openid")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TenantID != "tenant-1" {
		t.Errorf("tenant: got %q", cfg.TenantID)
	}
	if cfg.ClientID != "client-1" {
		t.Errorf("client: got %q", cfg.ClientID)
	}
	if cfg.ConnectionName != "graph" {
		t.Errorf("connection: got %q", cfg.ConnectionName)
	}
	if cfg.AgentType != "CustomHandler" {
		t.Errorf("agent type: got %q", cfg.AgentType)
	}
	if cfg.Port != 8080 {
		t.Errorf("port: got %d", cfg.Port)
	}
	if !cfg.DiagnosticCommands {
		t.Error("expected diagnostic commands enabled")
	}
	if !cfg.ChatChannel {
		t.Error("expected chat channel enabled")
	}
	if cfg.OpenIDMetadata != "http://localhost:9000/openid" {
		t.Errorf("openid metadata: got %q", cfg.OpenIDMetadata)
	}
	if cfg.AuthType != AuthTypeUserManagedIdentity {
		t.Errorf("auth type: got %q", cfg.AuthType)
	}
}

func TestLoadIgnoresUnrelatedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_TYPE", "ClientSecret")
	t.Setenv("HOME_PORT", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthType != AuthTypeUserManagedIdentity {
		t.Errorf("auth type must stay fixed, got %q", cfg.AuthType)
	}
	if cfg.Port != 3978 {
		t.Errorf("port: got %d", cfg.Port)
	}
}

func TestLoadEmptyPortUsesDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3978 {
		t.Errorf("port: got %d, want 3978", cfg.Port)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agent.yml")
	data := "tenant_id: file-tenant\nport: 4000\nstorage_path: /tmp/state.db\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PORT", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TenantID != "file-tenant" {
		t.Errorf("tenant: got %q, want file-tenant", cfg.TenantID)
	}
	if cfg.StoragePath != "/tmp/state.db" {
		t.Errorf("storage path: got %q", cfg.StoragePath)
	}
	if cfg.Port != 5000 {
		t.Errorf("env should override file, got port %d", cfg.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Port != 3978 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Addr(); got != ":3978" {
		t.Errorf("Addr() = %q, want :3978", got)
	}
}
