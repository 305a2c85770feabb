// Package workflow orchestrates multi-agent pipelines as dependency-ordered
// step graphs. Steps are registered with explicit dependencies, scheduled in
// topological order, and executed sequentially: each step's task template is
// rendered from the initial context plus the results of completed steps.
//
// Failure containment is per branch: a failed step marks its transitive
// dependents failed without invoking their agents, while independent branches
// continue. Steps can also carry conditions that skip them at runtime.
package workflow
