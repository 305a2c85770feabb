package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/llmflow/agent"
	"github.com/hupe1980/llmflow/logging"
)

// DefaultStepRetries is the number of execution attempts per step.
const DefaultStepRetries = 2

// maxRunHistory bounds the orchestrator's retained run results.
const maxRunHistory = 100

// StepStatus is the terminal state of a step within one run.
type StepStatus string

const (
	// StepPending means the step has not been reached yet.
	StepPending StepStatus = "pending"
	// StepSucceeded means the step's agent produced a result.
	StepSucceeded StepStatus = "succeeded"
	// StepFailed means the step failed, directly or through a dependency.
	StepFailed StepStatus = "failed"
	// StepSkipped means the step's condition evaluated false.
	StepSkipped StepStatus = "skipped"
)

// StepOptions configure a step at registration time.
type StepOptions struct {
	// DependsOn names steps that must succeed before this step runs.
	DependsOn []string
	// Condition, when set, is evaluated against the execution environment
	// just before the step runs. False skips the step.
	Condition Condition
	// MaxRetries is the number of execution attempts. Defaults to
	// DefaultStepRetries.
	MaxRetries int
}

// step is a registered unit of the workflow graph.
type step struct {
	name       string
	agent      agent.Agent
	template   string
	dependsOn  []string
	condition  Condition
	maxRetries int
}

// Result is the outcome of one workflow run.
type Result struct {
	RunID     string                `json:"run_id"`
	Success   bool                  `json:"success"`
	Results   map[string]string     `json:"results"`
	Errors    map[string]error      `json:"-"`
	Statuses  map[string]StepStatus `json:"statuses"`
	Completed int                   `json:"completed"`
	Skipped   int                   `json:"skipped"`
	Order     []string              `json:"order"`
	Duration  time.Duration         `json:"duration"`
}

// Options configure an Orchestrator.
type Options struct {
	Logger logging.Logger
}

// Orchestrator owns a workflow graph and executes it. Registration and
// execution are goroutine-safe; concurrent Execute calls run against the
// same graph but keep independent run state.
type Orchestrator struct {
	name string
	opts Options

	mu      sync.Mutex
	steps   map[string]*step
	order   []string // insertion order, the topological tie-break
	history []*Result
}

// NewOrchestrator creates an empty workflow.
func NewOrchestrator(name string, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		name:  name,
		opts:  opts,
		steps: make(map[string]*step),
	}
}

// Name returns the workflow name.
func (o *Orchestrator) Name() string { return o.name }

// AddStep registers a step. The task template may reference initial context
// keys and prior step names as {placeholders}. Dependencies must already be
// registered, which keeps the graph acyclic by construction when steps are
// added in execution order; cycles introduced otherwise are caught at
// Execute time.
func (o *Orchestrator) AddStep(name string, ag agent.Agent, template string, optFns ...func(s *StepOptions)) error {
	opts := StepOptions{
		MaxRetries: DefaultStepRetries,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if strings.TrimSpace(name) == "" {
		return &ConfigError{Message: "step name must not be empty"}
	}
	if ag == nil {
		return &ConfigError{Step: name, Message: "agent must not be nil"}
	}
	if opts.MaxRetries < 1 {
		return &ConfigError{Step: name, Message: "max retries must be at least 1"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.steps[name]; exists {
		return &ConfigError{Step: name, Message: "step already registered"}
	}
	for _, dep := range opts.DependsOn {
		if dep == name {
			return &ConfigError{Step: name, Message: "step cannot depend on itself"}
		}
		if _, ok := o.steps[dep]; !ok {
			return &ConfigError{Step: name, Message: fmt.Sprintf("unknown dependency %q", dep)}
		}
	}

	o.steps[name] = &step{
		name:       name,
		agent:      ag,
		template:   template,
		dependsOn:  append([]string(nil), opts.DependsOn...),
		condition:  opts.Condition,
		maxRetries: opts.MaxRetries,
	}
	o.order = append(o.order, name)
	return nil
}

// topoSort orders steps so every step follows its dependencies. Among ready
// steps the registration order wins, which makes runs deterministic. The
// caller must hold o.mu.
func (o *Orchestrator) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(o.steps))
	dependents := make(map[string][]string, len(o.steps))

	for _, name := range o.order {
		indegree[name] = len(o.steps[name].dependsOn)
		for _, dep := range o.steps[name].dependsOn {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var sorted []string
	ready := make(map[string]bool)
	for _, name := range o.order {
		if indegree[name] == 0 {
			ready[name] = true
		}
	}

	for len(sorted) < len(o.order) {
		next := ""
		for _, name := range o.order {
			if ready[name] {
				next = name
				break
			}
		}
		if next == "" {
			var remaining []string
			for _, name := range o.order {
				if indegree[name] > 0 {
					remaining = append(remaining, name)
				}
			}
			return nil, &ConfigError{Message: fmt.Sprintf("dependency cycle among steps: %s", joinQuoted(remaining))}
		}

		delete(ready, next)
		sorted = append(sorted, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready[dep] = true
			}
		}
	}

	return sorted, nil
}

// Execute runs the workflow. initialContext seeds the execution environment;
// each successful step adds its result under its own name. A run succeeds
// when no step failed; skipped steps do not count as failures.
func (o *Orchestrator) Execute(ctx context.Context, initialContext map[string]any) (*Result, error) {
	o.mu.Lock()
	if len(o.steps) == 0 {
		o.mu.Unlock()
		return nil, &ConfigError{Message: "workflow has no steps"}
	}
	order, err := o.topoSort()
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	steps := make([]*step, len(order))
	for i, name := range order {
		steps[i] = o.steps[name]
	}
	o.mu.Unlock()

	start := time.Now()
	result := &Result{
		RunID:    uuid.NewString(),
		Results:  make(map[string]string),
		Errors:   make(map[string]error),
		Statuses: make(map[string]StepStatus),
		Order:    order,
	}
	for _, name := range order {
		result.Statuses[name] = StepPending
	}

	env := make(map[string]any, len(initialContext))
	for k, v := range initialContext {
		env[k] = v
	}

	o.opts.Logger.Info("workflow started",
		"workflow", o.name,
		"run_id", result.RunID,
		"steps", len(order),
	)

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			result.Errors[s.name] = err
			result.Statuses[s.name] = StepFailed
			continue
		}

		if failed := o.failedDeps(s, result); len(failed) > 0 {
			depErr := &DependencyError{Step: s.name, Failed: failed}
			result.Errors[s.name] = depErr
			result.Statuses[s.name] = StepFailed
			o.opts.Logger.Warn("step failed by dependency",
				"workflow", o.name,
				"step", s.name,
				"failed_dependencies", failed,
			)
			continue
		}

		if s.condition != nil && !s.condition(env) {
			result.Statuses[s.name] = StepSkipped
			result.Skipped++
			o.opts.Logger.Info("step skipped by condition",
				"workflow", o.name,
				"step", s.name,
			)
			continue
		}

		task, missing := renderTemplate(s.template, env)
		if len(missing) > 0 {
			tmplErr := &TemplateError{Step: s.name, Missing: missing}
			result.Errors[s.name] = tmplErr
			result.Statuses[s.name] = StepFailed
			o.opts.Logger.Error("step template incomplete",
				"workflow", o.name,
				"step", s.name,
				"missing", missing,
			)
			continue
		}

		text, err := o.runStep(ctx, s, task, env)
		if err != nil {
			result.Errors[s.name] = err
			result.Statuses[s.name] = StepFailed
			o.opts.Logger.Error("step failed",
				"workflow", o.name,
				"step", s.name,
				"error", err,
			)
			continue
		}

		env[s.name] = text
		result.Results[s.name] = text
		result.Statuses[s.name] = StepSucceeded
		result.Completed++
		o.opts.Logger.Info("step completed",
			"workflow", o.name,
			"step", s.name,
		)
	}

	result.Success = len(result.Errors) == 0
	result.Duration = time.Since(start)

	o.opts.Logger.Info("workflow finished",
		"workflow", o.name,
		"run_id", result.RunID,
		"success", result.Success,
		"completed", result.Completed,
		"skipped", result.Skipped,
		"failed", len(result.Errors),
		"duration", result.Duration,
	)

	o.mu.Lock()
	o.history = append(o.history, result)
	if len(o.history) > maxRunHistory {
		o.history = o.history[len(o.history)-maxRunHistory:]
	}
	o.mu.Unlock()

	return result, nil
}

// failedDeps lists the step's dependencies that did not succeed. Only
// succeeded dependencies unlock a step; skipped and failed both block it.
func (o *Orchestrator) failedDeps(s *step, result *Result) []string {
	var failed []string
	for _, dep := range s.dependsOn {
		if result.Statuses[dep] != StepSucceeded {
			failed = append(failed, dep)
		}
	}
	return failed
}

// runStep executes one step with its retry budget. Agent state is reset
// between attempts so the busy check does not trip on retries.
func (o *Orchestrator) runStep(ctx context.Context, s *step, task string, env map[string]any) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := s.agent.Execute(ctx, task, env)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt < s.maxRetries {
			o.opts.Logger.Warn("step attempt failed, retrying",
				"workflow", o.name,
				"step", s.name,
				"attempt", attempt,
				"error", err,
			)
		}
	}
	return "", fmt.Errorf("step %q failed after %d attempts: %w", s.name, s.maxRetries, lastErr)
}

// History returns the retained run results, oldest first.
func (o *Orchestrator) History() []*Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Result(nil), o.history...)
}

// Describe renders the workflow graph as indented text, one step per line in
// registration order with dependencies and template placeholders.
func (o *Orchestrator) Describe() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Workflow: %s (%d steps)\n", o.name, len(o.order))
	for _, name := range o.order {
		s := o.steps[name]
		fmt.Fprintf(&b, "  - %s (agent: %s)\n", s.name, s.agent.Name())
		if len(s.dependsOn) > 0 {
			fmt.Fprintf(&b, "      depends on: %s\n", strings.Join(s.dependsOn, ", "))
		}
		if placeholders := templatePlaceholders(s.template); len(placeholders) > 0 {
			fmt.Fprintf(&b, "      inputs: %s\n", strings.Join(placeholders, ", "))
		}
		if s.condition != nil {
			b.WriteString("      conditional\n")
		}
	}
	return b.String()
}
