// Package llmflow provides a high-level façade over the invocation manager,
// agents and workflow orchestration, enabling rapid construction of resilient
// LLM pipelines. Most applications interact with this package by:
//  1. Creating a Flow via New() with a provider configuration
//  2. Obtaining role agents (research, analysis, generation, review) or
//     building custom ones on the invocation manager
//  3. Composing agents into dependency-ordered workflows and executing them
//
// The façade delegates text generation to invocation.Manager (retry, fallback,
// caching, cost accounting) and orchestration to workflow.Orchestrator. All
// defaults are safe for local development; production deployments typically
// supply a structured logger and Prometheus registry.
package llmflow

import (
	"context"
	"errors"

	"github.com/hupe1980/llmflow/agent"
	"github.com/hupe1980/llmflow/invocation"
	"github.com/hupe1980/llmflow/logging"
	"github.com/hupe1980/llmflow/workflow"
)

// Sentinel errors for pluggable document sources and export sinks.
var (
	// ErrUnsupportedFormat is returned by sources and sinks handed a format
	// they do not implement.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrReadFailure is returned by sources whose backing document cannot
	// be read. Wrap it with the underlying cause.
	ErrReadFailure = errors.New("document read failure")
)

// DocumentSource supplies reference text for retrieval-augmented agents.
// Implementations parse a concrete format (plain text, markdown, PDF) and
// return passages relevant to a query.
type DocumentSource interface {
	// Retrieve returns up to count passages relevant to the query.
	Retrieve(ctx context.Context, query string, count int) ([]string, error)
}

// ExportSink persists a finished text result in a named output format.
type ExportSink interface {
	// Export writes the named document in the given format. Sinks that do
	// not implement the format return ErrUnsupportedFormat.
	Export(ctx context.Context, name, format, content string) error
}

// Options configures a Flow instance.
type Options struct {
	// Logger used by the manager and orchestrators. Defaults to the
	// process-wide slog logger.
	Logger logging.Logger

	// Metrics, when set, records invocation counters and token usage.
	Metrics *invocation.Metrics

	// Documents, when set, grounds the research agent's prompts in
	// retrieved passages.
	Documents DocumentSource
}

// Flow is the high-level façade aggregating an invocation manager and the
// agents built on it.
type Flow struct {
	opts    Options
	manager *invocation.Manager
}

// New creates a Flow from an invocation configuration.
func New(cfg invocation.Config, optFns ...func(o *Options)) (*Flow, error) {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	manager, err := invocation.NewManager(cfg, func(o *invocation.Options) {
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	if err != nil {
		return nil, err
	}

	return &Flow{opts: opts, manager: manager}, nil
}

// Manager exposes the underlying invocation manager for direct generation
// and usage statistics.
func (f *Flow) Manager() *invocation.Manager { return f.manager }

// Generate issues a single generation through the manager.
func (f *Flow) Generate(ctx context.Context, req invocation.GenerateRequest) (*invocation.Result, error) {
	return f.manager.Generate(ctx, req)
}

// Stats returns a snapshot of accumulated usage and cost.
func (f *Flow) Stats() invocation.StatsSnapshot { return f.manager.Stats() }

// ResearchAgent returns a research agent, grounded in the configured
// document source when one is set.
func (f *Flow) ResearchAgent() *agent.SimpleAgent {
	return agent.NewResearchAgent(f.manager, func(o *agent.Options) {
		if f.opts.Documents != nil {
			o.Retriever = f.opts.Documents
		}
	})
}

// AnalysisAgent returns an analysis agent.
func (f *Flow) AnalysisAgent() *agent.SimpleAgent {
	return agent.NewAnalysisAgent(f.manager)
}

// GenerationAgent returns a content generation agent.
func (f *Flow) GenerationAgent() *agent.SimpleAgent {
	return agent.NewGenerationAgent(f.manager)
}

// ReviewAgent returns a review agent.
func (f *Flow) ReviewAgent() *agent.SimpleAgent {
	return agent.NewReviewAgent(f.manager)
}

// PolicyDraftingAgent returns the multi-phase policy drafting agent.
func (f *Flow) PolicyDraftingAgent() *agent.PolicyDraftingAgent {
	return agent.NewPolicyDraftingAgent(f.manager)
}

// RiskAssessmentAgent returns the multi-phase risk assessment agent.
func (f *Flow) RiskAssessmentAgent() *agent.RiskAssessmentAgent {
	return agent.NewRiskAssessmentAgent(f.manager)
}

// NewWorkflow creates an empty orchestrator sharing the flow's logger.
func (f *Flow) NewWorkflow(name string) *workflow.Orchestrator {
	return workflow.NewOrchestrator(name, func(o *workflow.Options) {
		o.Logger = f.opts.Logger
	})
}

// NewDocumentWorkflow builds the standard four-stage document pipeline:
// research the topic, analyze the findings, generate the document, then
// review it. The workflow takes the topic under the initial context key
// "task".
func (f *Flow) NewDocumentWorkflow(name string) (*workflow.Orchestrator, error) {
	w := f.NewWorkflow(name)

	if err := w.AddStep("research", f.ResearchAgent(),
		"Research the following topic thoroughly: {task}"); err != nil {
		return nil, err
	}
	if err := w.AddStep("analyze", f.AnalysisAgent(),
		"Analyze these research findings and identify key requirements:\n\n{research}",
		func(s *workflow.StepOptions) { s.DependsOn = []string{"research"} }); err != nil {
		return nil, err
	}
	if err := w.AddStep("generate", f.GenerationAgent(),
		"Create a complete document for: {task}\n\nBased on this analysis:\n\n{analyze}",
		func(s *workflow.StepOptions) { s.DependsOn = []string{"analyze"} }); err != nil {
		return nil, err
	}
	if err := w.AddStep("review", f.ReviewAgent(),
		"Review this document and provide the improved final version:\n\n{generate}",
		func(s *workflow.StepOptions) { s.DependsOn = []string{"generate"} }); err != nil {
		return nil, err
	}

	return w, nil
}
