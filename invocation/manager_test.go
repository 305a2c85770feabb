package invocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/llmflow/cache"
	"github.com/hupe1980/llmflow/llm"
)

func testConfig() Config {
	cfg := NewConfig(NewProviderConfig(ProviderMock, "gpt-4o-mini", ""))
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, cfg Config, primary, fallback llm.Provider) *Manager {
	t.Helper()
	m, err := NewManager(cfg, func(o *Options) {
		o.PrimaryProvider = primary
		o.FallbackProvider = fallback
	})
	require.NoError(t, err)
	return m
}

func TestNewManagerValidatesConfig(t *testing.T) {
	cfg := NewConfig(NewProviderConfig(ProviderOpenAI, "gpt-4o", ""))

	_, err := NewManager(cfg)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)
}

func TestNewManagerRejectsUnknownProvider(t *testing.T) {
	cfg := NewConfig(NewProviderConfig("bedrock", "some-model", "key"))

	_, err := NewManager(cfg)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "provider", cfgErr.Field)
}

func TestGenerateSuccess(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")
	mock.SetUsage(llm.TokenUsage{PromptTokens: 1000, CompletionTokens: 500})

	m := newTestManager(t, testConfig(), mock, nil)

	res, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "world", res.Text)
	assert.Equal(t, 1000, res.PromptTokens)
	assert.Equal(t, 500, res.CompletionTokens)
	assert.InDelta(t, 0.00045, res.Cost, 1e-9) // gpt-4o-mini pricing
	assert.Equal(t, ProviderMock, res.Provider)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 1, mock.Calls())
}

func TestGenerateCountsTokensLocallyWhenUnreported(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello there, how are you today?", "I am fine, thank you for asking.")

	m := newTestManager(t, testConfig(), mock, nil)

	res, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello there, how are you today?"})
	require.NoError(t, err)
	assert.Greater(t, res.PromptTokens, 0)
	assert.Greater(t, res.CompletionTokens, 0)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")
	mock.FailWith(errors.New("503 service unavailable"), errors.New("connection reset"))

	m := newTestManager(t, testConfig(), mock, nil)

	res, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "world", res.Text)
	assert.Equal(t, 3, mock.Calls())
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.FailWith(
		errors.New("503 one"),
		errors.New("503 two"),
		errors.New("503 three"),
		errors.New("503 never reached"),
	)

	m := newTestManager(t, testConfig(), mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Len(t, invErr.PrimaryErrs, DefaultMaxRetries)
	assert.Equal(t, DefaultMaxRetries, mock.Calls())
}

func TestGenerateAuthErrorShortCircuits(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.FailWith(errors.New("401 unauthorized"))

	m := newTestManager(t, testConfig(), mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Len(t, invErr.PrimaryErrs, 1)
	assert.Equal(t, 1, mock.Calls())
}

func TestGenerateFallsBack(t *testing.T) {
	primary := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	primary.FailWith(
		errors.New("503 one"),
		errors.New("503 two"),
		errors.New("503 three"),
	)
	fallback := llm.NewMockProvider("claude-3-5-sonnet-20241022", "anthropic-mock")
	fallback.AddResponse("hello", "fallback says hi")

	cfg := testConfig()
	fb := NewProviderConfig(ProviderMock, "claude-3-5-sonnet-20241022", "")
	cfg.Fallback = &fb

	m := newTestManager(t, cfg, primary, fallback)

	res, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "fallback says hi", res.Text)
	assert.Equal(t, "anthropic-mock", res.Provider)
	assert.Equal(t, DefaultMaxRetries, primary.Calls())
	assert.Equal(t, 1, fallback.Calls())
}

func TestGenerateFallbackExhaustionCarriesAllErrors(t *testing.T) {
	primary := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	primary.FailWith(
		errors.New("503 p1"),
		errors.New("503 p2"),
		errors.New("503 p3"),
	)
	fallback := llm.NewMockProvider("claude-3-5-sonnet-20241022", "anthropic-mock")
	fallback.FailWith(errors.New("503 f1"))

	cfg := testConfig()
	fb := NewProviderConfig(ProviderMock, "claude-3-5-sonnet-20241022", "")
	cfg.Fallback = &fb

	m := newTestManager(t, cfg, primary, fallback)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Len(t, invErr.PrimaryErrs, DefaultMaxRetries)
	assert.Len(t, invErr.FallbackErrs, DefaultFallbackRetries)
	assert.Equal(t, "anthropic-mock", invErr.FallbackProvider)
}

func TestGenerateCacheHit(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")
	mock.SetUsage(llm.TokenUsage{PromptTokens: 100, CompletionTokens: 50})

	m := newTestManager(t, testConfig(), mock, nil)

	first, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Greater(t, first.Cost, 0.0)

	second, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Zero(t, second.Cost)
	assert.Equal(t, first.Text, second.Text)

	// The provider is not consulted again.
	assert.Equal(t, 1, mock.Calls())
}

func TestGenerateCacheVariesWithTemperature(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")

	m := newTestManager(t, testConfig(), mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)

	temp := 0.2
	_, err = m.Generate(context.Background(), GenerateRequest{Prompt: "hello", Temperature: &temp})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
}

func TestGenerateCacheDisabled(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")

	cfg := testConfig()
	cfg.CacheEnabled = false

	m := newTestManager(t, cfg, mock, nil)
	assert.Nil(t, m.Cache())

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
}

func TestGenerateSharedCache(t *testing.T) {
	shared := cache.New(10)

	mock1 := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock1.AddResponse("hello", "world")
	m1, err := NewManager(testConfig(), func(o *Options) {
		o.PrimaryProvider = mock1
		o.Cache = shared
	})
	require.NoError(t, err)

	mock2 := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	m2, err := NewManager(testConfig(), func(o *Options) {
		o.PrimaryProvider = mock2
		o.Cache = shared
	})
	require.NoError(t, err)

	_, err = m1.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)

	res, err := m2.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, 0, mock2.Calls())

	// Usage statistics stay per manager.
	assert.Equal(t, int64(1), m1.Stats().TotalCalls)
	assert.Equal(t, int64(1), m2.Stats().TotalCalls)
	assert.Equal(t, int64(1), m2.Stats().CacheHits)
}

func TestGenerateOverrideValidation(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	m := newTestManager(t, testConfig(), mock, nil)

	badTemp := 3.5
	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello", Temperature: &badTemp})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "temperature", cfgErr.Field)

	badTokens := int64(-1)
	_, err = m.Generate(context.Background(), GenerateRequest{Prompt: "hello", MaxTokens: &badTokens})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_tokens", cfgErr.Field)

	assert.Equal(t, 0, mock.Calls())
}

func TestGenerateCallLimit(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("one", "1")
	mock.AddResponse("two", "2")

	cfg := testConfig()
	cfg.CacheEnabled = false
	cfg.MaxCalls = 1

	m := newTestManager(t, cfg, mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "one"})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), GenerateRequest{Prompt: "two"})
	assert.ErrorIs(t, err, ErrCallLimit)
	assert.Equal(t, 1, mock.Calls())
}

func TestGenerateContextCancelled(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)

	m := newTestManager(t, testConfig(), mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, GenerateRequest{Prompt: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsAccumulate(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.AddResponse("hello", "world")
	mock.SetUsage(llm.TokenUsage{PromptTokens: 100, CompletionTokens: 50})

	m := newTestManager(t, testConfig(), mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), GenerateRequest{Prompt: "hello"}) // cache hit
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(150), stats.TotalTokens)
	assert.Greater(t, stats.TotalCost, 0.0)
	assert.Len(t, stats.History, 2)

	m.ResetStats()
	stats = m.Stats()
	assert.Zero(t, stats.TotalCalls)
	assert.Empty(t, stats.History)
}

func TestStatsRecordFailures(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	mock.FailWith(errors.New("401 unauthorized"))

	m := newTestManager(t, testConfig(), mock, nil)

	_, err := m.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.Error(t, err)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.FailedCalls)
	require.Len(t, stats.History, 1)
	assert.NotEmpty(t, stats.History[0].Error)
}

func TestBackoffDelay(t *testing.T) {
	cfg := NewConfig(NewProviderConfig(ProviderMock, "gpt-4o-mini", ""))
	cfg.RetryBaseDelay = 100 * time.Millisecond
	cfg.RetryMaxDelay = 300 * time.Millisecond
	m := newTestManager(t, cfg, llm.NewMockProvider("gpt-4o-mini", ProviderMock), nil)

	// Exponential growth with jitter up to 25%.
	d1 := m.backoffDelay(1, 0)
	assert.GreaterOrEqual(t, d1, 100*time.Millisecond)
	assert.LessOrEqual(t, d1, 125*time.Millisecond)

	d2 := m.backoffDelay(2, 0)
	assert.GreaterOrEqual(t, d2, 200*time.Millisecond)
	assert.LessOrEqual(t, d2, 250*time.Millisecond)

	// Capped at the max delay plus jitter.
	d4 := m.backoffDelay(4, 0)
	assert.LessOrEqual(t, d4, 375*time.Millisecond)

	// A provider hint wins but is still capped.
	assert.Equal(t, 150*time.Millisecond, m.backoffDelay(1, 150*time.Millisecond))
	assert.Equal(t, 300*time.Millisecond, m.backoffDelay(1, time.Second))
}

func TestPrimaryInfo(t *testing.T) {
	mock := llm.NewMockProvider("gpt-4o-mini", ProviderMock)
	m := newTestManager(t, testConfig(), mock, nil)

	info := m.PrimaryInfo()
	assert.Equal(t, "gpt-4o-mini", info.Name)
	assert.Equal(t, ProviderMock, info.Provider)
}
