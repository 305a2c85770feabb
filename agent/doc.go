// Package agent contains the agent implementations of llmflow: units of
// work that turn a task description plus context into a text result through
// one invocation manager.
//
// The package covers three concerns:
//
//  1. The Agent contract and shared lifecycle state (BaseAgent)
//  2. Single-call role agents (research, analysis, generation, review)
//  3. Multi-phase specialized agents (policy drafting, risk assessment)
//
// Design principles:
//   - Agents depend on the narrow Generator interface, never on provider SDKs
//   - Each agent owns its mutable state record; concurrent Execute calls on
//     one instance are rejected with ErrAgentBusy
//   - Prompt shaping is the only thing concrete agents differ in
package agent
