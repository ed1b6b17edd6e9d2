package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/modeler/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

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
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestLLMConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*LLMConfig)
		wantErr bool
	}{
		{"defaults", func(*LLMConfig) {}, false},
		{"openai with model", func(c *LLMConfig) { c.Provider = ProviderOpenAI }, false},
		{"openai without model", func(c *LLMConfig) { c.Provider = ProviderOpenAI; c.Model = "" }, true},
		{"disabled without model", func(c *LLMConfig) { c.Model = "" }, false},
		{"unknown provider", func(c *LLMConfig) { c.Provider = "llama" }, true},
		{"temperature too high", func(c *LLMConfig) { c.Temperature = 2.5 }, true},
		{"negative temperature", func(c *LLMConfig) { c.Temperature = -1 }, true},
		{"zero max tokens", func(c *LLMConfig) { c.MaxTokens = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig().LLM
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSessionConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*SessionConfig)
		wantErr bool
	}{
		{"defaults", func(*SessionConfig) {}, false},
		{"cron expression", func(c *SessionConfig) { c.PruneSchedule = "0 * * * *" }, false},
		{"bad schedule", func(c *SessionConfig) { c.PruneSchedule = "sometimes" }, true},
		{"missing path", func(c *SessionConfig) { c.Path = "" }, true},
		{"zero ttl", func(c *SessionConfig) { c.TTL = 0 }, true},
		{"tiny ttl", func(c *SessionConfig) { c.TTL = time.Millisecond }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig().Session
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
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

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("MODELER_TEST_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
llm:
  provider: openai
  api_key: ${MODELER_TEST_KEY}
  model: gpt-4o
  max_tokens: 512
session:
  ttl: 2h
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.LLM.APIKey != "sk-test" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Session.TTL != 2*time.Hour || cfg.Session.PruneSchedule != "@every 1h" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}
