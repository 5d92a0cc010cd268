package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/retry"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "config/config.yaml"

// Environment variables that override file values
const (
	EnvGroqAPIKey         = "GROQ_API_KEY"
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvServiceAccountFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Defaults
const (
	DefaultFolderName  = "Drive_Connect"
	DefaultFileName    = "marketing_copy.txt"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultTemperature = 0.7
	DefaultAddress     = ":8080"
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1000
	DefaultRateLimit   = 0.5
	DefaultRateBurst   = 5
	DefaultTokenFile   = "config/token.json"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete application configuration
type Config struct {
	LLM           LLMConfig                     `yaml:"llm"`
	Google        GoogleConfig                  `yaml:"google"`
	Drive         DriveConfig                   `yaml:"drive"`
	Server        ServerConfig                  `yaml:"server"`
	Retry         RetryConfig                   `yaml:"retry"`
	Logging       LoggingConfig                 `yaml:"logging"`
	Targets       map[string]TargetConfig       `yaml:"targets,omitempty"`
	Collaborators map[string]CollaboratorConfig `yaml:"collaborators,omitempty"`
}

// LLMConfig contains the content generator settings
type LLMConfig struct {
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	DefaultTone string        `yaml:"default_tone"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	Strategy           string   `yaml:"strategy"`
	CredentialsFile    string   `yaml:"credentials_file,omitempty"`
	TokenFile          string   `yaml:"token_file,omitempty"`
	ServiceAccountFile string   `yaml:"service_account_file,omitempty"`
	ClientID           string   `yaml:"client_id,omitempty"`
	ClientSecret       string   `yaml:"client_secret,omitempty"`
	RedirectURL        string   `yaml:"redirect_url,omitempty"`
	Scopes             []string `yaml:"scopes,omitempty"`
	CallbackPort       int      `yaml:"callback_port"`
}

// DriveConfig contains the default upload target
type DriveConfig struct {
	SharedDrive     string        `yaml:"shared_drive,omitempty"`
	AllDrives       bool          `yaml:"all_drives"`
	FolderName      string        `yaml:"folder_name"`
	FolderID        string        `yaml:"folder_id,omitempty"`
	FileName        string        `yaml:"file_name"`
	CreateFolder    bool          `yaml:"create_folder"`
	AllowRootUpload bool          `yaml:"allow_root_upload"`
	ChunkSize       int           `yaml:"chunk_size,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// ServerConfig contains the web form settings
type ServerConfig struct {
	Address       string        `yaml:"address"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	MaxSessions   int           `yaml:"max_sessions"`
	SecureCookies bool          `yaml:"secure_cookies"`
	RateLimit     float64       `yaml:"rate_limit"` // Form actions per second per client; negative disables
	RateBurst     int           `yaml:"rate_burst"`
}

// RetryConfig contains backoff settings for outbound calls.
// MaxRetries is a pointer so an explicit 0 disables retries instead of
// reading as unset.
type RetryConfig struct {
	MaxRetries *uint64       `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TargetConfig is a named upload destination
type TargetConfig struct {
	FolderName  string `yaml:"folder_name,omitempty"`
	FolderID    string `yaml:"folder_id,omitempty"`
	SharedDrive string `yaml:"shared_drive,omitempty"`
	FileName    string `yaml:"file_name,omitempty"`
}

// CollaboratorConfig is someone uploaded files can be shared with
type CollaboratorConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Role    string `yaml:"role,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration from the specified YAML file,
// then applies defaults and environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv(os.LookupEnv)
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults plus environment
// overrides when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = Default()
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// Save writes the configuration to the specified YAML file.
// The file may hold secrets so it is only readable by the owner.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = DefaultTemperature
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.DefaultTone == "" {
		c.LLM.DefaultTone = string(content.ToneProfessional)
	}

	if c.Google.Strategy == "" {
		c.Google.Strategy = credential.InstalledApp.String()
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = DefaultTokenFile
	}
	if c.Google.CallbackPort == 0 {
		c.Google.CallbackPort = auth.DefaultCallbackPort
	}

	if c.Drive.FolderName == "" && c.Drive.FolderID == "" {
		c.Drive.FolderName = DefaultFolderName
	}
	if c.Drive.FileName == "" {
		c.Drive.FileName = DefaultFileName
	}

	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = DefaultMaxSessions
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}

	if c.Retry.MaxRetries == nil {
		maxRetries := retry.DefaultPolicy.MaxRetries
		c.Retry.MaxRetries = &maxRetries
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = retry.DefaultPolicy.BaseDelay
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = retry.DefaultPolicy.MaxDelay
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// applyEnv overrides secrets and key paths from the environment
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvGroqAPIKey); ok && v != "" {
		c.LLM.APIKey = v
	}
	if v, ok := lookup(EnvGoogleClientID); ok && v != "" {
		c.Google.ClientID = v
	}
	if v, ok := lookup(EnvGoogleClientSecret); ok && v != "" {
		c.Google.ClientSecret = v
	}
	if v, ok := lookup(EnvServiceAccountFile); ok && v != "" {
		c.Google.ServiceAccountFile = v
	}
}

// Validate reports every missing or malformed field at once
func (c *Config) Validate() error {
	return report(append(c.llmProblems(), c.googleProblems()...))
}

// ValidateGoogle checks only the sections Drive commands need
func (c *Config) ValidateGoogle() error {
	return report(c.googleProblems())
}

func report(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c *Config) llmProblems() []string {
	var problems []string
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		problems = append(problems, fmt.Sprintf("llm.api_key is required (or set %s)", EnvGroqAPIKey))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be between 0 and 2")
	}
	if _, err := content.ParseTone(c.LLM.DefaultTone, content.ToneProfessional); err != nil {
		problems = append(problems, fmt.Sprintf("llm.default_tone: unknown tone %q", c.LLM.DefaultTone))
	}
	return problems
}

func (c *Config) googleProblems() []string {
	var problems []string

	strategy, err := credential.ParseStrategy(c.Google.Strategy)
	if err != nil {
		problems = append(problems, fmt.Sprintf("google.strategy: unknown value %q", c.Google.Strategy))
	}

	switch strategy {
	case credential.ServiceAccount:
		if c.Google.ServiceAccountFile == "" {
			problems = append(problems, fmt.Sprintf("google.service_account_file is required (or set %s)", EnvServiceAccountFile))
		}
	case credential.InstalledApp, credential.WebOAuth:
		if c.Google.CredentialsFile == "" && (c.Google.ClientID == "" || c.Google.ClientSecret == "") {
			problems = append(problems, "google.credentials_file or google.client_id and google.client_secret are required")
		}
		if strategy == credential.WebOAuth && c.Google.RedirectURL == "" {
			problems = append(problems, "google.redirect_url is required for web_oauth")
		}
	}

	if strings.TrimSpace(c.Drive.FileName) == "" {
		problems = append(problems, "drive.file_name is required")
	}
	if c.Drive.FolderName == "" && c.Drive.FolderID == "" && !c.Drive.AllowRootUpload {
		problems = append(problems, "drive.folder_name or drive.folder_id is required unless drive.allow_root_upload is set")
	}

	keys := make([]string, 0, len(c.Collaborators))
	for key := range c.Collaborators {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		cc := c.Collaborators[key]
		if !isValidEmail(cc.Address) {
			problems = append(problems, fmt.Sprintf("collaborators.%s: invalid address %q", key, cc.Address))
		}
		if _, err := parseRole(cc.Role); err != nil {
			problems = append(problems, fmt.Sprintf("collaborators.%s: %v", key, err))
		}
	}

	return problems
}

// Strategy returns the parsed authentication strategy
func (c *Config) Strategy() (credential.Strategy, error) {
	return credential.ParseStrategy(c.Google.Strategy)
}

// AuthConfig returns the settings the credential store needs
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		CredentialsFile:    c.Google.CredentialsFile,
		TokenFile:          c.Google.TokenFile,
		ServiceAccountFile: c.Google.ServiceAccountFile,
		ClientID:           c.Google.ClientID,
		ClientSecret:       c.Google.ClientSecret,
		RedirectURL:        c.Google.RedirectURL,
		Scopes:             c.Google.Scopes,
		CallbackPort:       c.Google.CallbackPort,
	}
}

// RetryPolicy returns the backoff policy for outbound calls
func (c *Config) RetryPolicy() retry.Policy {
	maxRetries := retry.DefaultPolicy.MaxRetries
	if c.Retry.MaxRetries != nil {
		maxRetries = *c.Retry.MaxRetries
	}
	return retry.Policy{
		MaxRetries: maxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
	}
}

// DefaultTone returns the configured tone, or Professional when unset or unknown
func (c *Config) DefaultTone() content.Tone {
	tone, err := content.ParseTone(c.LLM.DefaultTone, content.ToneProfessional)
	if err != nil {
		return content.ToneProfessional
	}
	return tone
}
