package workflow

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition decides at runtime whether a step executes. It receives the
// current execution environment (initial context plus completed step results)
// and returns true to run the step. Steps with a false condition are skipped,
// not failed; steps depending on a skipped step are failed by dependency,
// since the result their templates reference was never produced.
type Condition func(env map[string]any) bool

// ExprCondition compiles an expression into a Condition. Expressions use the
// expr language and see the execution environment as variables, e.g.
// "len(research) > 100" or "approved == true". Variables that are not yet
// defined evaluate as nil rather than erroring, so conditions can reference
// optional context keys.
func ExprCondition(expression string) (Condition, error) {
	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expression, err)
	}
	return func(env map[string]any) bool {
		return runCondition(program, env)
	}, nil
}

// runCondition executes a compiled condition. Runtime errors count as false:
// a condition that cannot be evaluated must not run its step.
func runCondition(program *vm.Program, env map[string]any) bool {
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
