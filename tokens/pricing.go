package tokens

// ModelPricing holds per-model prices in USD per one million tokens.
type ModelPricing struct {
	Input  float64
	Output float64
}

// pricing is keyed by model identifier. Prices are USD per 1M tokens.
var pricing = map[string]ModelPricing{
	// OpenAI
	"gpt-4":               {Input: 30.0, Output: 60.0},
	"gpt-4-turbo-preview": {Input: 10.0, Output: 30.0},
	"gpt-4o":              {Input: 5.0, Output: 15.0},
	"gpt-4o-mini":         {Input: 0.15, Output: 0.6},
	"gpt-3.5-turbo":       {Input: 0.5, Output: 1.5},

	// Anthropic
	"claude-sonnet-4-20250514":   {Input: 3.0, Output: 15.0},
	"claude-opus-4-20251101":     {Input: 15.0, Output: 75.0},
	"claude-3-5-sonnet-20241022": {Input: 3.0, Output: 15.0},

	// Groq-hosted open models
	"llama-3.3-70b-versatile": {Input: 0.59, Output: 0.79},
	"llama-3.1-8b-instant":    {Input: 0.05, Output: 0.08},
	"mixtral-8x7b-32768":      {Input: 0.24, Output: 0.24},
}

// LookupPricing returns the pricing entry for a model identifier.
func LookupPricing(model string) (ModelPricing, bool) {
	p, ok := pricing[model]
	return p, ok
}

// EstimateCost returns the estimated USD cost of a request. Unknown models
// cost zero rather than failing, so accounting never blocks a call.
func EstimateCost(promptTokens, completionTokens int, model string) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	inputCost := float64(promptTokens) / 1_000_000 * p.Input
	outputCost := float64(completionTokens) / 1_000_000 * p.Output
	return inputCost + outputCost
}
