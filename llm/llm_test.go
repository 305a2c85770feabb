package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRequest(prompt string) Request {
	return Request{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

func TestMockProviderCannedResponse(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")
	m.AddResponse("hello", "world")

	resp, err := m.Complete(context.Background(), userRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Nil(t, resp.Usage)
}

func TestMockProviderDefaultResponse(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")

	resp, err := m.Complete(context.Background(), userRequest("anything"))
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "anything")
}

func TestMockProviderErrorQueue(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")
	m.AddResponse("hello", "world")
	m.FailWith(errors.New("boom 1"), errors.New("boom 2"))

	_, err := m.Complete(context.Background(), userRequest("hello"))
	assert.EqualError(t, err, "boom 1")

	_, err = m.Complete(context.Background(), userRequest("hello"))
	assert.EqualError(t, err, "boom 2")

	resp, err := m.Complete(context.Background(), userRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)

	assert.Equal(t, 3, m.Calls())
}

func TestMockProviderUsage(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")
	m.SetUsage(TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})

	resp, err := m.Complete(context.Background(), userRequest("hello"))
	require.NoError(t, err)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 20, resp.Usage.CompletionTokens)
}

func TestMockProviderContextCancelled(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, userRequest("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockProviderInfo(t *testing.T) {
	m := NewMockProvider("mock-model", "mock")
	info := m.Info()
	assert.Equal(t, "mock-model", info.Name)
	assert.Equal(t, "mock", info.Provider)
}
