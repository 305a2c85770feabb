package invocation

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/llmflow/cache"
	"github.com/hupe1980/llmflow/llm"
	anthropicprovider "github.com/hupe1980/llmflow/llm/anthropic"
	openaiprovider "github.com/hupe1980/llmflow/llm/openai"
	"github.com/hupe1980/llmflow/logging"
	"github.com/hupe1980/llmflow/tokens"
)

// GenerateRequest carries one generate() call. Temperature and MaxTokens
// override the primary provider configuration for this call only.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature *float64
	MaxTokens   *int64
}

// Result is the immutable outcome of a successful Generate call.
type Result struct {
	Text             string        `json:"text"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Cost             float64       `json:"cost"` // USD charged for this call; zero on cache hit
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	CacheHit         bool          `json:"cache_hit"`
	Latency          time.Duration `json:"latency"`
}

// Options configure optional manager collaborators.
type Options struct {
	// Cache overrides the manager-built cache, allowing several managers to
	// share one response cache by reference. UsageStats are never shared.
	Cache *cache.ResponseCache

	// Logger defaults to a NoOpLogger.
	Logger logging.Logger

	// Metrics enables Prometheus observation when set.
	Metrics *Metrics

	// PrimaryProvider / FallbackProvider inject pre-built providers,
	// bypassing construction from the ProviderConfig. Used by tests and by
	// callers with custom Provider implementations.
	PrimaryProvider  llm.Provider
	FallbackProvider llm.Provider
}

// Manager coordinates provider calls with retry, fallback, caching and cost
// accounting. Safe for concurrent use.
type Manager struct {
	cfg      Config
	primary  llm.Provider
	fallback llm.Provider
	cache    *cache.ResponseCache
	counter  *tokens.Counter
	logger   logging.Logger
	metrics  *Metrics
	stats    *UsageStats
	limiter  *CallLimiter
}

// NewManager validates cfg and builds the providers it names. Missing
// credentials or out-of-range generation parameters fail here, not at call
// time.
func NewManager(cfg Config, optFns ...func(o *Options)) (*Manager, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	primary := opts.PrimaryProvider
	if primary == nil {
		p, err := buildProvider(cfg.Primary)
		if err != nil {
			return nil, err
		}
		primary = p
	}

	fallback := opts.FallbackProvider
	if fallback == nil && cfg.Fallback != nil {
		p, err := buildProvider(*cfg.Fallback)
		if err != nil {
			return nil, err
		}
		fallback = p
	}

	respCache := opts.Cache
	if respCache == nil && cfg.CacheEnabled {
		respCache = cache.New(cfg.CacheSize)
	}

	counter, err := tokens.NewCounter(cfg.Primary.Model)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		cache:    respCache,
		counter:  counter,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		stats:    NewUsageStats(),
		limiter:  NewCallLimiter(cfg.MaxCalls),
	}, nil
}

// buildProvider constructs the concrete llm.Provider named by pc.
func buildProvider(pc ProviderConfig) (llm.Provider, error) {
	switch pc.Provider {
	case ProviderOpenAI:
		return openaiprovider.New(func(o *openaiprovider.Options) {
			o.Model = pc.Model
			o.APIKey = pc.APIKey
		}), nil
	case ProviderAnthropic:
		return anthropicprovider.New(func(o *anthropicprovider.Options) {
			o.Model = pc.Model
			o.APIKey = pc.APIKey
		}), nil
	case ProviderMock:
		return llm.NewMockProvider(pc.Model, ProviderMock), nil
	default:
		return nil, &ConfigError{Field: "provider", Message: "unsupported provider " + pc.Provider}
	}
}

// Generate produces text for the request, consulting the cache first, then
// the primary provider with retry, then the fallback. On exhaustion it
// returns an *InvocationError carrying every underlying attempt failure.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	start := time.Now()
	invocationID := uuid.NewString()

	temperature := m.cfg.Primary.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > 2 {
		return nil, &ConfigError{Field: "temperature", Message: "temperature override must be between 0 and 2"}
	}

	maxTokens := m.cfg.Primary.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens <= 0 {
		return nil, &ConfigError{Field: "max_tokens", Message: "max tokens override must be positive"}
	}

	key := cache.Key(req.Prompt, req.System, m.cfg.Primary.Model, temperature)
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			cached := *(v.(*Result))
			cached.CacheHit = true
			cached.Cost = 0
			cached.Latency = time.Since(start)

			m.stats.record(CallRecord{
				Time:         time.Now(),
				InvocationID: invocationID,
				Provider:     cached.Provider,
				Model:        cached.Model,
				CacheHit:     true,
				Latency:      cached.Latency,
			})
			m.metrics.observeCacheHit()
			m.logger.Debug("invocation cache hit", "invocation_id", invocationID, "model", cached.Model)

			return &cached, nil
		}
	}

	if err := m.limiter.Increment(); err != nil {
		return nil, err
	}

	llmReq := llm.Request{
		Messages:    buildMessages(req.System, req.Prompt),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var (
		resp    *llm.Response
		used    llm.Provider
		usedCfg ProviderConfig
	)

	resp, primaryErrs := m.tryProvider(ctx, m.primary, m.cfg.Primary, m.cfg.MaxRetries, llmReq)
	if resp != nil {
		used, usedCfg = m.primary, m.cfg.Primary
	}

	var fallbackErrs []error
	if resp == nil && m.fallback != nil {
		m.logger.Warn("primary provider exhausted, trying fallback",
			"invocation_id", invocationID,
			"primary", m.primary.Info().Provider,
			"attempts", len(primaryErrs),
		)
		fallbackCfg := m.cfg.Primary
		if m.cfg.Fallback != nil {
			fallbackCfg = *m.cfg.Fallback
		}
		resp, fallbackErrs = m.tryProvider(ctx, m.fallback, fallbackCfg, m.cfg.FallbackRetries, llmReq)
		if resp != nil {
			used, usedCfg = m.fallback, fallbackCfg
		}
	}

	if resp == nil {
		invErr := &InvocationError{
			PrimaryProvider: m.primary.Info().Provider,
			PrimaryErrs:     primaryErrs,
		}
		if m.fallback != nil {
			invErr.FallbackProvider = m.fallback.Info().Provider
			invErr.FallbackErrs = fallbackErrs
		}

		m.stats.record(CallRecord{
			Time:         time.Now(),
			InvocationID: invocationID,
			Provider:     m.primary.Info().Provider,
			Model:        m.cfg.Primary.Model,
			Latency:      time.Since(start),
			Error:        invErr.Error(),
		})
		m.metrics.observeCall(m.primary.Info().Provider, "error")
		m.logger.Error("generation exhausted all providers",
			"invocation_id", invocationID,
			"error", invErr.Error(),
		)

		return nil, invErr
	}

	info := used.Info()
	promptTokens, completionTokens := m.usage(llmReq, resp)
	cost := tokens.EstimateCost(promptTokens, completionTokens, usedCfg.Model)

	result := &Result{
		Text:             resp.Text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Cost:             cost,
		Provider:         info.Provider,
		Model:            info.Name,
		Latency:          time.Since(start),
	}

	m.stats.record(CallRecord{
		Time:             time.Now(),
		InvocationID:     invocationID,
		Provider:         result.Provider,
		Model:            result.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Cost:             cost,
		Latency:          result.Latency,
	})
	m.metrics.observeCall(info.Provider, "success")
	m.metrics.observeUsage(info.Provider, promptTokens, completionTokens, cost)

	if m.cache != nil {
		stored := *result
		m.cache.Put(key, &stored)
	}

	m.logger.Debug("invocation complete",
		"invocation_id", invocationID,
		"provider", result.Provider,
		"model", result.Model,
		"tokens", promptTokens+completionTokens,
		"latency", result.Latency,
	)

	return result, nil
}

// tryProvider runs the retry loop against one provider. It returns the
// first successful response, or nil plus the classified failure of every
// attempt made. Non-retryable failures and context cancellation
// short-circuit the loop.
func (m *Manager) tryProvider(
	ctx context.Context,
	provider llm.Provider,
	pc ProviderConfig,
	maxAttempts int,
	req llm.Request,
) (*llm.Response, []error) {
	var attemptErrs []error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, append(attemptErrs, err)
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if pc.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, pc.Timeout)
		}
		resp, err := provider.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			return resp, attemptErrs
		}

		te := &TransientError{Kind: Classify(err), Err: err}
		var hinted *TransientError
		if errors.As(err, &hinted) && hinted.RetryAfter > 0 {
			te.RetryAfter = hinted.RetryAfter
		}
		attemptErrs = append(attemptErrs, te)

		m.logger.Warn("provider attempt failed",
			"provider", provider.Info().Provider,
			"attempt", attempt,
			"kind", te.Kind.String(),
			"error", err.Error(),
		)

		if !te.Kind.Retryable() {
			return nil, attemptErrs
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, append(attemptErrs, ctx.Err())
		case <-time.After(m.backoffDelay(attempt, te.RetryAfter)):
		}
	}

	return nil, attemptErrs
}

// backoffDelay computes the sleep before the next attempt: exponential from
// the base delay, capped, with up to 25% jitter. A provider-supplied hint
// takes precedence over the computed delay.
func (m *Manager) backoffDelay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		if hint > m.cfg.RetryMaxDelay {
			return m.cfg.RetryMaxDelay
		}
		return hint
	}

	delay := m.cfg.RetryBaseDelay << (attempt - 1)
	if delay > m.cfg.RetryMaxDelay || delay <= 0 {
		delay = m.cfg.RetryMaxDelay
	}
	return delay + rand.N(delay/4+1)
}

// usage derives token counts from the provider-reported usage, falling back
// to local counting when the backend does not report them.
func (m *Manager) usage(req llm.Request, resp *llm.Response) (promptTokens, completionTokens int) {
	if resp.Usage != nil {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}

	var prompt strings.Builder
	for _, msg := range req.Messages {
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n")
	}
	return m.counter.Count(prompt.String()), m.counter.Count(resp.Text)
}

// buildMessages assembles the normalized message set for one call.
func buildMessages(system, prompt string) []llm.Message {
	var messages []llm.Message
	if system != "" {
		messages = append(messages, llm.Message{Role: "system", Content: system})
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt})
	return messages
}

// Stats returns a snapshot of this manager's usage counters.
func (m *Manager) Stats() StatsSnapshot { return m.stats.Snapshot() }

// ResetStats clears the usage counters and call history.
func (m *Manager) ResetStats() { m.stats.Reset() }

// Cache returns the response cache, or nil when caching is disabled.
func (m *Manager) Cache() *cache.ResponseCache { return m.cache }

// PrimaryInfo returns metadata about the configured primary provider.
func (m *Manager) PrimaryInfo() llm.Info { return m.primary.Info() }
