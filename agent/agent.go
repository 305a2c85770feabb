package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/llmflow/invocation"
)

// Generator is the capability agents need from the invocation layer.
// *invocation.Manager satisfies it; tests supply mocks.
type Generator interface {
	Generate(ctx context.Context, req invocation.GenerateRequest) (*invocation.Result, error)
}

// Retriever supplies context passages for a query, typically backed by a
// similarity search over a document store. The search algorithm is outside
// this module; agents only append the returned passages to their prompt.
type Retriever interface {
	Retrieve(ctx context.Context, query string, count int) ([]string, error)
}

// Agent is a unit of orchestration logic: it turns a task plus context into
// a text result. Implementations route all text generation through one
// Generator.
type Agent interface {
	// Name returns the human-readable agent name.
	Name() string

	// Execute runs the agent's primary task. taskContext carries named
	// values (initial workflow context and prior step results).
	Execute(ctx context.Context, task string, taskContext map[string]any) (string, error)
}

// ErrAgentBusy is returned when Execute is called while a previous Execute
// on the same instance is still running. Concurrent executions are rejected
// rather than queued so the agent's state record has a single writer.
var ErrAgentBusy = errors.New("agent is already executing")

// ExecutionError wraps an agent's internal failure (generation failure,
// malformed task, retrieval failure). The orchestrator captures it as the
// owning step's failure.
type ExecutionError struct {
	Agent string
	Err   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %q failed: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ExecutionError) Unwrap() error { return e.Err }

// formatContext renders task context as an indented key/value block appended
// to prompts. Keys are sorted for deterministic prompts (and cache keys).
func formatContext(taskContext map[string]any) string {
	if len(taskContext) == 0 {
		return ""
	}

	keys := make([]string, 0, len(taskContext))
	for k := range taskContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\n\nContext:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, taskContext[k])
	}
	return b.String()
}

// contextString reads a string value from task context with a fallback.
func contextString(taskContext map[string]any, key, fallback string) string {
	if v, ok := taskContext[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
