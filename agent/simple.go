package agent

import (
	"context"
	"fmt"
	"strings"
)

// Options configure a SimpleAgent.
type Options struct {
	Description   string
	SystemMessage string
	Temperature   *float64
	Retriever     Retriever // optional; passages are appended to the prompt
	RetrieveCount int       // passages per query, defaults to 3
}

// SimpleAgent executes a task with a single generation call. The prompt is
// the task text plus a rendered view of the task context, optionally
// augmented with retrieved passages.
type SimpleAgent struct {
	BaseAgent
	retriever     Retriever
	retrieveCount int
}

// NewSimpleAgent creates a single-call agent with sensible defaults.
func NewSimpleAgent(name string, gen Generator, optFns ...func(o *Options)) *SimpleAgent {
	opts := Options{
		Description:   fmt.Sprintf("Agent %s", name),
		SystemMessage: "You are a helpful assistant.",
		RetrieveCount: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &SimpleAgent{
		BaseAgent:     NewBaseAgent(name, opts.Description, opts.SystemMessage, gen),
		retriever:     opts.Retriever,
		retrieveCount: opts.RetrieveCount,
	}
	if opts.Temperature != nil {
		a.SetTemperature(*opts.Temperature)
	}
	return a
}

// Execute implements Agent with one generation call.
func (a *SimpleAgent) Execute(ctx context.Context, task string, taskContext map[string]any) (string, error) {
	if err := a.begin(task); err != nil {
		return "", err
	}

	prompt := task + formatContext(taskContext)

	if a.retriever != nil {
		passages, err := a.retriever.Retrieve(ctx, task, a.retrieveCount)
		if err != nil {
			execErr := &ExecutionError{Agent: a.Name(), Err: fmt.Errorf("context retrieval failed: %w", err)}
			a.finish("", execErr)
			return "", execErr
		}
		if len(passages) > 0 {
			prompt += "\n\nRelevant passages:\n" + strings.Join(passages, "\n---\n")
		}
	}

	text, err := a.generate(ctx, prompt)
	if err != nil {
		execErr := &ExecutionError{Agent: a.Name(), Err: err}
		a.finish("", execErr)
		return "", execErr
	}

	a.finish(text, nil)
	return text, nil
}

// Role agent temperatures: factual work runs cool, creative work runs warm.
const (
	researchTemperature   = 0.3
	analysisTemperature   = 0.5
	generationTemperature = 0.7
	reviewTemperature     = 0.4
)

// NewResearchAgent creates an agent specialized in information gathering.
// Wire a Retriever via the options to ground answers in a document store.
func NewResearchAgent(gen Generator, optFns ...func(o *Options)) *SimpleAgent {
	return newRoleAgent("research", gen,
		"Gathers information and researches topics from provided context",
		`You are a research specialist. Your role is to:
1. Search through provided documents and context
2. Extract relevant information
3. Summarize findings clearly
4. Cite sources when available

Be thorough, accurate, and concise in your research.`,
		researchTemperature, optFns)
}

// NewAnalysisAgent creates an agent specialized in analyzing information and
// identifying patterns, risks, and gaps.
func NewAnalysisAgent(gen Generator, optFns ...func(o *Options)) *SimpleAgent {
	return newRoleAgent("analysis", gen,
		"Analyzes information to identify patterns, risks, and gaps",
		`You are an analytical expert. Your role is to:
1. Analyze provided information critically
2. Identify patterns, trends, and anomalies
3. Assess risks and gaps
4. Provide evidence-based insights
5. Rate findings by severity and priority

Use structured thinking and provide clear, actionable analysis.`,
		analysisTemperature, optFns)
}

// NewGenerationAgent creates an agent specialized in content generation.
func NewGenerationAgent(gen Generator, optFns ...func(o *Options)) *SimpleAgent {
	return newRoleAgent("generation", gen,
		"Generates professional content and documentation",
		`You are a professional content writer. Your role is to:
1. Create clear, well-structured documents
2. Follow industry standards and best practices
3. Use appropriate professional tone
4. Include all required sections
5. Ensure accuracy and completeness

Write in clear, professional language suitable for business audiences.`,
		generationTemperature, optFns)
}

// NewReviewAgent creates an agent specialized in reviewing and improving
// content.
func NewReviewAgent(gen Generator, optFns ...func(o *Options)) *SimpleAgent {
	return newRoleAgent("review", gen,
		"Reviews content for quality, completeness, and correctness",
		`You are a quality assurance expert. Your role is to:
1. Review documents for completeness and accuracy
2. Check conformance with frameworks and standards
3. Identify gaps and missing elements
4. Suggest specific improvements
5. Verify professional tone and clarity

Provide constructive, detailed feedback with specific examples.`,
		reviewTemperature, optFns)
}

func newRoleAgent(name string, gen Generator, description, system string, temperature float64, optFns []func(o *Options)) *SimpleAgent {
	base := []func(o *Options){func(o *Options) {
		o.Description = description
		o.SystemMessage = system
		o.Temperature = &temperature
	}}
	return NewSimpleAgent(name, gen, append(base, optFns...)...)
}
