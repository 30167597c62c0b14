package internal

import (
	"path/filepath"
	"strings"
	"testing"
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

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "", HTTP: HTTPConfig{Port: 8080}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty format should default: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("format = %q, want %q", cfg.LogFormat, LogFormatJSON)
	}

	cfg = ApplicationConfig{LogFormat: "xml", HTTP: HTTPConfig{Port: 8080}}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown format should fail validation")
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestDefaultLibraryDir_EnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "my-prompts")
	t.Setenv(EnvLibraryDir, want)
	if got := DefaultLibraryDir(); got != want {
		t.Errorf("dir = %q, want %q", got, want)
	}
}

func TestDefaultLibraryDir_AdjacentFallback(t *testing.T) {
	t.Setenv(EnvLibraryDir, "")
	got := DefaultLibraryDir()
	if filepath.Base(got) != "prompts" {
		t.Errorf("dir = %q, want a prompts/ directory", got)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
