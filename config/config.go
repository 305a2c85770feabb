package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/llmflow/invocation"
)

// Default environment variables consulted for API credentials when a
// provider section does not name one.
const (
	DefaultOpenAIKeyEnv    = "OPENAI_API_KEY"
	DefaultAnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// ProviderSection is the YAML shape of one provider. Credentials are never
// written in the file; APIKeyEnv names the environment variable to read.
type ProviderSection struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Timeout     string  `yaml:"timeout"` // Go duration string, e.g. "60s"
}

// File is the YAML shape of a full configuration file.
type File struct {
	Primary  ProviderSection  `yaml:"primary"`
	Fallback *ProviderSection `yaml:"fallback"`

	MaxRetries      int    `yaml:"max_retries"`
	FallbackRetries int    `yaml:"fallback_retries"`
	RetryBaseDelay  string `yaml:"retry_base_delay"`
	RetryMaxDelay   string `yaml:"retry_max_delay"`

	CacheEnabled *bool `yaml:"cache_enabled"` // nil means enabled
	CacheSize    int   `yaml:"cache_size"`

	MaxCalls int `yaml:"max_calls"`
}

// Load reads a YAML configuration file and resolves it into an
// invocation.Config. Unknown YAML keys are rejected so typos surface as
// errors instead of silently falling back to defaults.
func Load(path string) (invocation.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return invocation.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse resolves YAML bytes into an invocation.Config.
func Parse(data []byte) (invocation.Config, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return invocation.Config{}, fmt.Errorf("parse config: %w", err)
	}
	return f.Resolve()
}

// Resolve converts the file representation into a validated
// invocation.Config, reading credentials from the environment.
func (f File) Resolve() (invocation.Config, error) {
	primary, err := f.Primary.resolve()
	if err != nil {
		return invocation.Config{}, err
	}

	cfg := invocation.NewConfig(primary)

	if f.Fallback != nil {
		fallback, err := f.Fallback.resolve()
		if err != nil {
			return invocation.Config{}, err
		}
		cfg.Fallback = &fallback
	}

	if f.MaxRetries > 0 {
		cfg.MaxRetries = f.MaxRetries
	}
	if f.FallbackRetries > 0 {
		cfg.FallbackRetries = f.FallbackRetries
	}
	if cfg.RetryBaseDelay, err = parseDuration(f.RetryBaseDelay, "retry_base_delay", cfg.RetryBaseDelay); err != nil {
		return invocation.Config{}, err
	}
	if cfg.RetryMaxDelay, err = parseDuration(f.RetryMaxDelay, "retry_max_delay", cfg.RetryMaxDelay); err != nil {
		return invocation.Config{}, err
	}

	if f.CacheEnabled != nil {
		cfg.CacheEnabled = *f.CacheEnabled
	}
	cfg.CacheSize = f.CacheSize
	cfg.MaxCalls = f.MaxCalls

	if err := cfg.Validate(); err != nil {
		return invocation.Config{}, err
	}
	return cfg, nil
}

func (s ProviderSection) resolve() (invocation.ProviderConfig, error) {
	pc := invocation.NewProviderConfig(s.Provider, s.Model, "")

	if s.Temperature != 0 {
		pc.Temperature = s.Temperature
	}
	if s.MaxTokens != 0 {
		pc.MaxTokens = s.MaxTokens
	}

	keyEnv := s.APIKeyEnv
	if keyEnv == "" {
		switch s.Provider {
		case invocation.ProviderOpenAI:
			keyEnv = DefaultOpenAIKeyEnv
		case invocation.ProviderAnthropic:
			keyEnv = DefaultAnthropicKeyEnv
		}
	}
	if keyEnv != "" {
		pc.APIKey = os.Getenv(keyEnv)
	}

	var err error
	if pc.Timeout, err = parseDuration(s.Timeout, "timeout", pc.Timeout); err != nil {
		return invocation.ProviderConfig{}, err
	}
	return pc, nil
}

func parseDuration(s, field string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}
