// Package invocation implements the resilient generate() layer of llmflow.
//
// The Manager owns provider selection, retry with exponential backoff,
// fallback to a secondary provider, response caching, token/cost accounting
// and usage statistics. Agents and workflows call Manager.Generate and never
// talk to a provider SDK directly.
//
// Error taxonomy:
//   - *ConfigError: invalid settings, detected at construction, never retried
//   - *TransientError: timeouts, rate limits, transient network failures;
//     retried per policy
//   - *InvocationError: terminal failure after exhausting primary and
//     fallback, carrying both failure chains
package invocation
