package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/infrastructure/retry"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvGroqAPIKey, EnvGoogleClientID, EnvGoogleClientSecret, EnvServiceAccountFile} {
		t.Setenv(k, "")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  api_key: gsk_test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Drive.FolderName != DefaultFolderName {
		t.Errorf("FolderName = %q, want %q", cfg.Drive.FolderName, DefaultFolderName)
	}
	if cfg.Drive.FileName != DefaultFileName {
		t.Errorf("FileName = %q, want %q", cfg.Drive.FileName, DefaultFileName)
	}
	if cfg.LLM.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.LLM.Model, DefaultModel)
	}
	if cfg.LLM.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.LLM.BaseURL, DefaultBaseURL)
	}
	if cfg.Google.CallbackPort != 8085 {
		t.Errorf("CallbackPort = %d, want 8085", cfg.Google.CallbackPort)
	}
	if cfg.Server.SessionTTL != DefaultSessionTTL {
		t.Errorf("SessionTTL = %v, want %v", cfg.Server.SessionTTL, DefaultSessionTTL)
	}
	if cfg.Server.RateLimit != DefaultRateLimit || cfg.Server.RateBurst != DefaultRateBurst {
		t.Errorf("rate limit = %v/%d, want %v/%d", cfg.Server.RateLimit, cfg.Server.RateBurst, DefaultRateLimit, DefaultRateBurst)
	}
	if policy := cfg.RetryPolicy(); policy.MaxRetries != 3 || policy.BaseDelay == 0 {
		t.Errorf("RetryPolicy() = %+v, want 3 retries with backoff", policy)
	}
	if cfg.Drive.AllowRootUpload {
		t.Error("AllowRootUpload should default to false")
	}

	strategy, err := cfg.Strategy()
	if err != nil || strategy != credential.InstalledApp {
		t.Errorf("Strategy() = %v, %v, want installed_app", strategy, err)
	}
	if cfg.DefaultTone() != content.ToneProfessional {
		t.Errorf("DefaultTone() = %q", cfg.DefaultTone())
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  api_key: gsk_file
  model: llama-3.1-8b-instant
  timeout: 15s
  default_tone: exciting
google:
  strategy: service-account
  service_account_file: keys/sa.json
drive:
  shared_drive: Marketing
  folder_name: Launch
  file_name: launch.txt
server:
  address: 127.0.0.1:9000
  session_ttl: 10m
retry:
  max_retries: 5
  base_delay: 200ms
  max_delay: 5s
targets:
  launch:
    folder_name: Launch Assets
collaborators:
  priya:
    name: Priya Raman
    address: priya@example.com
    role: writer
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("LLM.Timeout = %v, want 15s", cfg.LLM.Timeout)
	}
	if cfg.DefaultTone() != content.ToneExciting {
		t.Errorf("DefaultTone() = %q, want Exciting", cfg.DefaultTone())
	}
	if s, _ := cfg.Strategy(); s != credential.ServiceAccount {
		t.Errorf("Strategy() = %v, want service_account", s)
	}
	if cfg.Server.SessionTTL != 10*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Server.SessionTTL)
	}

	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 5 || policy.BaseDelay != 200*time.Millisecond || policy.MaxDelay != 5*time.Second {
		t.Errorf("RetryPolicy() = %+v", policy)
	}

	ac := cfg.AuthConfig()
	if ac.ServiceAccountFile != "keys/sa.json" || ac.CallbackPort != 8085 {
		t.Errorf("AuthConfig() = %+v", ac)
	}

	if cfg.Targets["launch"].FolderName != "Launch Assets" {
		t.Errorf("Targets = %+v", cfg.Targets)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_ZeroRetriesDisablesRetry(t *testing.T) {
	path := writeConfig(t, "llm:\n  api_key: gsk_test\nretry:\n  max_retries: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", policy.MaxRetries)
	}
	if policy.BaseDelay != retry.DefaultPolicy.BaseDelay || policy.MaxDelay != retry.DefaultPolicy.MaxDelay {
		t.Errorf("unset delays should default, got %+v", policy)
	}

	// The explicit zero survives a save and reload
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reloaded.RetryPolicy().MaxRetries; got != 0 {
		t.Errorf("MaxRetries after reload = %d, want 0", got)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "llm:\n  api_key: from-file\ngoogle:\n  client_id: file-id\n")
	t.Setenv(EnvGroqAPIKey, "from-env")
	t.Setenv(EnvGoogleClientID, "env-id")
	t.Setenv(EnvGoogleClientSecret, "env-secret")
	t.Setenv(EnvServiceAccountFile, "/etc/sa.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.LLM.APIKey)
	}
	if cfg.Google.ClientID != "env-id" || cfg.Google.ClientSecret != "env-secret" {
		t.Errorf("Google client = %q/%q", cfg.Google.ClientID, cfg.Google.ClientSecret)
	}
	if cfg.Google.ServiceAccountFile != "/etc/sa.json" {
		t.Errorf("ServiceAccountFile = %q", cfg.Google.ServiceAccountFile)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}

	path := writeConfig(t, "llm: [unterminated")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for malformed YAML")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGroqAPIKey, "gsk_env")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Drive.FolderName != DefaultFolderName {
		t.Errorf("FolderName = %q", cfg.Drive.FolderName)
	}
	if cfg.LLM.APIKey != "gsk_env" {
		t.Errorf("APIKey = %q, want env value", cfg.LLM.APIKey)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.LLM.APIKey = "gsk_test"
		cfg.Google.CredentialsFile = "config/credentials.json"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{
			name:   "valid installed app",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.LLM.APIKey = "" },
			wantMsg: "llm.api_key",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Google.Strategy = "kerberos" },
			wantMsg: "google.strategy",
		},
		{
			name: "service account without key",
			mutate: func(c *Config) {
				c.Google.Strategy = "service_account"
			},
			wantMsg: "google.service_account_file",
		},
		{
			name: "installed app without client",
			mutate: func(c *Config) {
				c.Google.CredentialsFile = ""
				c.Google.ClientID = "id-only"
			},
			wantMsg: "google.credentials_file",
		},
		{
			name:    "web oauth without redirect",
			mutate:  func(c *Config) { c.Google.Strategy = "web_oauth" },
			wantMsg: "google.redirect_url",
		},
		{
			name:    "blank file name",
			mutate:  func(c *Config) { c.Drive.FileName = "  " },
			wantMsg: "drive.file_name",
		},
		{
			name: "no folder without root upload",
			mutate: func(c *Config) {
				c.Drive.FolderName = ""
				c.Drive.FolderID = ""
			},
			wantMsg: "drive.folder_name",
		},
		{
			name: "no folder with root upload",
			mutate: func(c *Config) {
				c.Drive.FolderName = ""
				c.Drive.AllowRootUpload = true
			},
		},
		{
			name:    "unknown default tone",
			mutate:  func(c *Config) { c.LLM.DefaultTone = "Sarcastic" },
			wantMsg: "llm.default_tone",
		},
		{
			name: "bad collaborator",
			mutate: func(c *Config) {
				c.Collaborators = map[string]CollaboratorConfig{"bob": {Name: "Bob", Address: "bob", Role: "owner"}}
			},
			wantMsg: "collaborators.bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.LLM.APIKey = "gsk_saved"
	cfg.Drive.SharedDrive = "Marketing"
	cfg.Server.SessionTTL = 5 * time.Minute

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.LLM.APIKey != "gsk_saved" || loaded.Drive.SharedDrive != "Marketing" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if loaded.Server.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", loaded.Server.SessionTTL)
	}
}

func TestConfig_ValidateGoogle_IgnoresLLM(t *testing.T) {
	cfg := Default()
	cfg.Google.Strategy = "service_account"
	cfg.Google.ServiceAccountFile = "sa.json"

	if err := cfg.ValidateGoogle(); err != nil {
		t.Errorf("ValidateGoogle() error = %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() error = %v, want missing api key", err)
	}
}
