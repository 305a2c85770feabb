package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/llmflow/invocation"
)

// Status is an agent's lifecycle state.
type Status string

const (
	// StatusIdle means the agent has not executed yet (or was reset).
	StatusIdle Status = "idle"
	// StatusRunning means an Execute call is in flight.
	StatusRunning Status = "running"
	// StatusSucceeded means the last Execute completed successfully.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the last Execute ended in an error.
	StatusFailed Status = "failed"
)

// State is the mutable record an agent keeps for introspection.
type State struct {
	Task       string `json:"task"`
	Iterations int    `json:"iterations"`
	Status     Status `json:"status"`
	Result     string `json:"result"` // last result text, or last error message on failure
}

// StateSummary is the introspection view returned by StateSummary().
type StateSummary struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Task       string `json:"task"`
	Iterations int    `json:"iterations"`
	HasResult  bool   `json:"has_result"`
}

// BaseAgent bundles the shared state machine and prompt plumbing. Embed it
// in concrete agent implementations and supply an Execute method to satisfy
// the Agent interface. All exported methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	system      string   // system message sent with every generation
	temperature *float64 // per-agent override of the manager default

	gen Generator

	mu    sync.Mutex
	state State
}

// NewBaseAgent constructs a BaseAgent bound to a generator.
func NewBaseAgent(name, description, system string, gen Generator) BaseAgent {
	return BaseAgent{
		name:        name,
		description: description,
		system:      system,
		gen:         gen,
		state:       State{Status: StatusIdle},
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetTemperature overrides the manager's default temperature for this agent.
func (b *BaseAgent) SetTemperature(t float64) { b.temperature = &t }

// begin transitions idle → running, rejecting concurrent executions.
func (b *BaseAgent) begin(task string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state.Status == StatusRunning {
		return ErrAgentBusy
	}
	b.state.Task = task
	b.state.Status = StatusRunning
	return nil
}

// finish transitions running → succeeded|failed and records the outcome.
func (b *BaseAgent) finish(result string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.state.Status = StatusFailed
		b.state.Result = err.Error()
		return
	}
	b.state.Status = StatusSucceeded
	b.state.Result = result
	b.state.Iterations++
}

// generate issues one generation with the agent's system message and
// temperature. Callers pass a fully shaped prompt.
func (b *BaseAgent) generate(ctx context.Context, prompt string) (string, error) {
	return b.generateWith(ctx, prompt, b.system, b.temperature)
}

// generateWith issues one generation with explicit system message and
// temperature, used by multi-phase agents whose phases differ.
func (b *BaseAgent) generateWith(ctx context.Context, prompt, system string, temperature *float64) (string, error) {
	res, err := b.gen.Generate(ctx, invocation.GenerateRequest{
		Prompt:      prompt,
		System:      system,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// State returns a copy of the current state record.
func (b *BaseAgent) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// StateSummary returns the introspection summary of the agent.
func (b *BaseAgent) StateSummary() StateSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	return StateSummary{
		Name:       b.name,
		Status:     b.state.Status,
		Task:       b.state.Task,
		Iterations: b.state.Iterations,
		HasResult:  b.state.Result != "",
	}
}

// ResetState returns the agent to its initial idle state.
func (b *BaseAgent) ResetState() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = State{Status: StatusIdle}
}
