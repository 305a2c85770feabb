package llm

import (
	"context"
	"fmt"
	"sync"
)

// Message is a single chat message in a normalized request.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Request captures the normalized provider input produced by the invocation
// manager. Temperature and MaxTokens are always set by the caller; providers
// must not substitute their own defaults so that cache keys stay faithful to
// what was actually sent.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int64     `json:"max_tokens"`
}

// TokenUsage captures token usage statistics reported by a backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a provider.
// Usage is nil when the backend does not report token counts; the invocation
// manager falls back to local counting in that case.
type Response struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`     // model identifier
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Provider is the minimal interface required to drive text generation.
// Implementations are stateless per call; retry, fallback and accounting
// live in the invocation manager.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the provider implementation.
	Info() Info
}

// MockProvider is a lightweight in-memory Provider useful for tests &
// examples. Errors queued via FailWith are returned first, one per call,
// before canned responses become visible again.
type MockProvider struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	usage     *TokenUsage
	errs      []error
	calls     int
}

// NewMockProvider constructs a MockProvider identifying itself with the
// given model name and provider label.
func NewMockProvider(name, provider string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockProvider) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith queues errors to be returned by subsequent Complete calls in order.
func (m *MockProvider) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// SetUsage fixes the token usage reported with every successful completion.
func (m *MockProvider) SetUsage(usage TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = &usage
}

// Calls returns how many times Complete has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	// Respond to the last user message.
	var inputText string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			inputText = msg.Content
		}
	}

	text := m.responses[inputText]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", inputText)
	}

	var usage *TokenUsage
	if m.usage != nil {
		u := *m.usage
		usage = &u
	}

	return &Response{Text: text, FinishReason: "stop", Usage: usage}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
