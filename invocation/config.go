package invocation

import (
	"time"
)

// Default generation and resilience settings.
const (
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 2000
	DefaultTimeout         = 60 * time.Second
	DefaultMaxRetries      = 3
	DefaultFallbackRetries = 1
	DefaultRetryBaseDelay  = 1 * time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
)

// Supported provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// ProviderConfig describes one generative-text backend. It is immutable
// after construction; Validate rejects out-of-range values before any call
// is made. APIKey is an opaque secret and is never logged.
type ProviderConfig struct {
	Provider    string        // "openai", "anthropic" or "mock"
	Model       string        // model identifier, also the pricing key
	Temperature float64       // 0.0 - 2.0
	MaxTokens   int64         // > 0
	APIKey      string        // required except for the mock provider
	Timeout     time.Duration // per-attempt timeout
}

// NewProviderConfig returns a ProviderConfig with the package defaults
// applied for temperature, max tokens and timeout.
func NewProviderConfig(provider, model, apiKey string) ProviderConfig {
	return ProviderConfig{
		Provider:    provider,
		Model:       model,
		APIKey:      apiKey,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// Validate checks the provider configuration, returning a *ConfigError for
// the first invalid field.
func (c ProviderConfig) Validate() error {
	if c.Provider == "" {
		return &ConfigError{Field: "provider", Message: "provider is required"}
	}
	if c.Model == "" {
		return &ConfigError{Field: "model", Message: "model identifier is required"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigError{Field: "temperature", Message: "temperature must be between 0 and 2"}
	}
	if c.MaxTokens <= 0 {
		return &ConfigError{Field: "max_tokens", Message: "max tokens must be positive"}
	}
	if c.APIKey == "" && c.Provider != ProviderMock {
		return &ConfigError{Field: "api_key", Message: "API credential is required for provider " + c.Provider}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Message: "timeout must not be negative"}
	}
	return nil
}

// Config configures a Manager. The zero values of the resilience fields are
// replaced with the package defaults at construction.
type Config struct {
	Primary  ProviderConfig
	Fallback *ProviderConfig // optional secondary provider

	MaxRetries      int           // attempts against the primary provider
	FallbackRetries int           // attempts against the fallback provider
	RetryBaseDelay  time.Duration // first backoff delay, doubled per attempt
	RetryMaxDelay   time.Duration // backoff cap

	CacheEnabled bool
	CacheSize    int // max cache entries; 0 uses the cache default

	MaxCalls int // upper bound on provider calls per manager; 0 = unlimited
}

// NewConfig returns a Config for a single primary provider with caching
// enabled and default retry policy.
func NewConfig(primary ProviderConfig) Config {
	return Config{
		Primary:         primary,
		MaxRetries:      DefaultMaxRetries,
		FallbackRetries: DefaultFallbackRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		RetryMaxDelay:   DefaultRetryMaxDelay,
		CacheEnabled:    true,
	}
}

// withDefaults fills unset resilience fields.
func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.FallbackRetries <= 0 {
		c.FallbackRetries = DefaultFallbackRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.Primary.Timeout == 0 {
		c.Primary.Timeout = DefaultTimeout
	}
	if c.Fallback != nil && c.Fallback.Timeout == 0 {
		c.Fallback.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the whole manager configuration.
func (c Config) Validate() error {
	if err := c.Primary.Validate(); err != nil {
		return err
	}
	if c.Fallback != nil {
		if err := c.Fallback.Validate(); err != nil {
			return err
		}
	}
	if c.CacheSize < 0 {
		return &ConfigError{Field: "cache_size", Message: "cache size must not be negative"}
	}
	if c.MaxCalls < 0 {
		return &ConfigError{Field: "max_calls", Message: "max calls must not be negative"}
	}
	return nil
}
