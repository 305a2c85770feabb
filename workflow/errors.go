package workflow

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid workflow definition: duplicate or empty step
// names, nil agents, unknown dependencies, or a dependency cycle.
type ConfigError struct {
	Step    string // offending step, empty for graph-level problems
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("invalid workflow: %s", e.Message)
	}
	return fmt.Sprintf("invalid workflow step %q: %s", e.Step, e.Message)
}

// DependencyError marks a step failed because a dependency did not succeed.
// The step's agent is never invoked in this case.
type DependencyError struct {
	Step   string
	Failed []string // dependencies that did not reach success
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %q skipped: dependencies failed: %s", e.Step, strings.Join(e.Failed, ", "))
}

// TemplateError reports placeholders in a step's task template that have no
// value in the execution environment.
type TemplateError struct {
	Step    string
	Missing []string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("step %q: template placeholders without values: %s", e.Step, strings.Join(e.Missing, ", "))
}
