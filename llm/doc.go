// Package llm defines the provider-agnostic abstractions for calling
// generative-text backends inside llmflow.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Expose token usage reported by the backend when available
//   - Facilitate lightweight mocking for tests (MockProvider)
//
// Providers (e.g. OpenAI, Anthropic) implement the Provider interface from
// this package so higher layers (invocation manager, agents, workflows)
// remain decoupled from vendor SDKs.
package llm
