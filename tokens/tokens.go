// Package tokens provides token counting and cost estimation for llmflow.
//
// Counting uses the tiktoken BPE vocabularies. Non-OpenAI models are
// approximated with the GPT-4 encoding, which is accurate enough for cost
// accounting and context budgeting. When no codec is available the package
// falls back to a rough 4-characters-per-token estimate.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter provides token counting for a specific model.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a token counter for the given model identifier.
// Unknown models use the GPT-4 encoding as an approximation.
func NewCounter(model string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		// Claude, Llama and other non-OpenAI models are not in the tiktoken
		// registry; approximate with the GPT-4 encoding.
		codec, err = tokenizer.ForModel(tokenizer.GPT4)
		if err != nil {
			return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
		}
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in the given text.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return estimate(text)
	}
	count, err := c.codec.Count(text)
	if err != nil {
		return estimate(text)
	}
	return count
}

// Truncate shortens text so it fits within the given token limit. The cut is
// proportional by characters, not exact token boundaries.
func (c *Counter) Truncate(text string, limit int) string {
	current := c.Count(text)
	if current <= limit {
		return text
	}

	ratio := float64(limit) / float64(current)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}

// estimate is the character-based fallback (1 token ~ 4 characters).
func estimate(text string) int {
	return len(text) / 4
}
