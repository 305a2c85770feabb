package invocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderConfigDefaults(t *testing.T) {
	pc := NewProviderConfig(ProviderOpenAI, "gpt-4o", "key")

	assert.Equal(t, DefaultTemperature, pc.Temperature)
	assert.Equal(t, int64(DefaultMaxTokens), pc.MaxTokens)
	assert.Equal(t, DefaultTimeout, pc.Timeout)
	assert.NoError(t, pc.Validate())
}

func TestProviderConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(pc *ProviderConfig)
		field  string
	}{
		{"missing provider", func(pc *ProviderConfig) { pc.Provider = "" }, "provider"},
		{"missing model", func(pc *ProviderConfig) { pc.Model = "" }, "model"},
		{"temperature too high", func(pc *ProviderConfig) { pc.Temperature = 2.5 }, "temperature"},
		{"temperature negative", func(pc *ProviderConfig) { pc.Temperature = -0.1 }, "temperature"},
		{"zero max tokens", func(pc *ProviderConfig) { pc.MaxTokens = 0 }, "max_tokens"},
		{"missing credential", func(pc *ProviderConfig) { pc.APIKey = "" }, "api_key"},
		{"negative timeout", func(pc *ProviderConfig) { pc.Timeout = -time.Second }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := NewProviderConfig(ProviderOpenAI, "gpt-4o", "key")
			tt.mutate(&pc)

			var cfgErr *ConfigError
			require.ErrorAs(t, pc.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestMockProviderNeedsNoCredential(t *testing.T) {
	pc := NewProviderConfig(ProviderMock, "mock-model", "")
	assert.NoError(t, pc.Validate())
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Primary: NewProviderConfig(ProviderMock, "mock-model", "")}
	cfg = cfg.withDefaults()

	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultFallbackRetries, cfg.FallbackRetries)
	assert.Equal(t, DefaultRetryBaseDelay, cfg.RetryBaseDelay)
	assert.Equal(t, DefaultRetryMaxDelay, cfg.RetryMaxDelay)
}

func TestConfigValidateFallback(t *testing.T) {
	cfg := NewConfig(NewProviderConfig(ProviderMock, "mock-model", ""))
	fb := NewProviderConfig(ProviderAnthropic, "claude-3-5-sonnet-20241022", "")
	cfg.Fallback = &fb

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)
}

func TestConfigValidateBounds(t *testing.T) {
	cfg := NewConfig(NewProviderConfig(ProviderMock, "mock-model", ""))
	cfg.CacheSize = -1
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(NewProviderConfig(ProviderMock, "mock-model", ""))
	cfg.MaxCalls = -1
	assert.Error(t, cfg.Validate())
}
