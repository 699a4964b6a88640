package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestWorkspaceConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Workspace.Validate(); err != nil {
		t.Fatalf("default workspace config should pass: %v", err)
	}
	if cfg.Workspace.HistoryLimit != 100 {
		t.Errorf("history limit = %d, want 100", cfg.Workspace.HistoryLimit)
	}
}

func TestWorkspaceConfig_InvalidHistoryLimit(t *testing.T) {
	cfg := WorkspaceConfig{HistoryLimit: 0, MaxUploadBytes: 1, IdleTTL: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero history limit should fail validation")
	}
}

func TestWorkspaceConfig_ZeroIdleTTLAllowed(t *testing.T) {
	cfg := WorkspaceConfig{HistoryLimit: 10, MaxUploadBytes: 1 << 20, IdleTTL: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero idle TTL disables sweeping and should pass: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
