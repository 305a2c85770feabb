package agent

import (
	"context"
	"fmt"
)

// PolicyDraftingAgent creates policy documents in three phases: research the
// requirements, generate a draft, then review and refine it. Each phase is a
// separate generation with its own system message and temperature.
type PolicyDraftingAgent struct {
	BaseAgent
}

// NewPolicyDraftingAgent creates a policy drafting agent.
func NewPolicyDraftingAgent(gen Generator) *PolicyDraftingAgent {
	return &PolicyDraftingAgent{
		BaseAgent: NewBaseAgent(
			"policy-drafting",
			"Creates comprehensive policy documents",
			"You are a policy writing expert.",
			gen,
		),
	}
}

// Execute implements Agent with the research → draft → refine pipeline.
// Task context keys "framework" and "industry" refine the research phase.
func (a *PolicyDraftingAgent) Execute(ctx context.Context, task string, taskContext map[string]any) (string, error) {
	if err := a.begin(task); err != nil {
		return "", err
	}

	framework := contextString(taskContext, "framework", "General compliance")
	industry := contextString(taskContext, "industry", "General")

	researchPrompt := fmt.Sprintf(`Research requirements for this policy:

%s

Framework: %s
Industry: %s

Identify:
1. Required sections
2. Regulatory requirements
3. Industry best practices
4. Key stakeholders`, task, framework, industry)

	research, err := a.generateWith(ctx, researchPrompt, "You are a policy research expert.", floatPtr(0.3))
	if err != nil {
		return a.fail(err)
	}

	draftPrompt := fmt.Sprintf(`Based on this research:

%s

Create a comprehensive policy document with these sections:
1. Purpose and Scope
2. Definitions
3. Policy Statements
4. Roles and Responsibilities
5. Procedures
6. Compliance and Enforcement
7. Review and Updates

Original requirements: %s`, research, task)

	draft, err := a.generateWith(ctx, draftPrompt, "You are a professional policy writer.", floatPtr(0.7))
	if err != nil {
		return a.fail(err)
	}

	reviewPrompt := fmt.Sprintf(`Review this policy draft:

%s

Improve:
1. Clarity and readability
2. Completeness
3. Professional tone
4. Specific and actionable language

Provide the improved version.`, draft)

	final, err := a.generateWith(ctx, reviewPrompt, "You are a policy review expert.", floatPtr(0.5))
	if err != nil {
		return a.fail(err)
	}

	a.finish(final, nil)
	return final, nil
}

// RiskAssessmentAgent performs a four-phase risk assessment: identify risk
// factors, score impact and likelihood, build a scenario, then recommend
// controls. The phases are compiled into a single report.
type RiskAssessmentAgent struct {
	BaseAgent
}

// NewRiskAssessmentAgent creates a risk assessment agent.
func NewRiskAssessmentAgent(gen Generator) *RiskAssessmentAgent {
	return &RiskAssessmentAgent{
		BaseAgent: NewBaseAgent(
			"risk-assessment",
			"Performs comprehensive risk assessments",
			"You are a risk management expert.",
			gen,
		),
	}
}

// Execute implements Agent with the identification → assessment → scenario →
// controls pipeline. Task context keys "industry" and "controls" refine the
// identification phase.
func (a *RiskAssessmentAgent) Execute(ctx context.Context, task string, taskContext map[string]any) (string, error) {
	if err := a.begin(task); err != nil {
		return "", err
	}

	industry := contextString(taskContext, "industry", "General")
	existingControls := contextString(taskContext, "controls", "None specified")

	identificationPrompt := fmt.Sprintf(`Identify risk factors for:

%s

Industry: %s
Current Controls: %s

List:
1. Primary risk factors
2. Secondary risk factors
3. Stakeholders affected
4. Assets at risk`, task, industry, existingControls)

	factors, err := a.generateWith(ctx, identificationPrompt, "You are a risk identification expert.", floatPtr(0.4))
	if err != nil {
		return a.fail(err)
	}

	assessmentPrompt := fmt.Sprintf(`Based on these risk factors:

%s

Assess:
1. Impact (1-5 scale): Financial, Operational, Reputational, Legal
2. Likelihood (1-5 scale)
3. Overall risk score
4. Risk priority (Critical/High/Medium/Low)

Provide specific reasoning for each rating.`, factors)

	assessment, err := a.generateWith(ctx, assessmentPrompt, "You are a risk scoring expert.", floatPtr(0.3))
	if err != nil {
		return a.fail(err)
	}

	scenarioPrompt := fmt.Sprintf(`Create a detailed risk scenario:

Risk: %s
Assessment: %s

Include:
1. Initial trigger event
2. Timeline of events
3. Primary impacts (quantified where possible)
4. Cascade effects
5. Affected stakeholders`, task, assessment)

	scenario, err := a.generateWith(ctx, scenarioPrompt, "You are a risk scenario planning expert.", floatPtr(0.7))
	if err != nil {
		return a.fail(err)
	}

	controlsPrompt := fmt.Sprintf(`Based on this risk assessment:

%s

And this scenario:

%s

Recommend:
1. Preventive controls
2. Detective controls
3. Corrective controls
4. Priority order for implementation
5. Estimated effort for each control`, assessment, scenario)

	controls, err := a.generateWith(ctx, controlsPrompt, "You are a control design expert.", floatPtr(0.5))
	if err != nil {
		return a.fail(err)
	}

	report := fmt.Sprintf(`# Risk Assessment Report

## Risk Identified
%s

## Risk Factors
%s

## Risk Assessment
%s

## Risk Scenario
%s

## Recommended Controls
%s
`, task, factors, assessment, scenario, controls)

	a.finish(report, nil)
	return report, nil
}

// fail records a phase failure and returns the wrapped execution error.
func (b *BaseAgent) fail(err error) (string, error) {
	execErr := &ExecutionError{Agent: b.Name(), Err: err}
	b.finish("", execErr)
	return "", execErr
}

// floatPtr creates a pointer to a float value, for optional overrides where
// nil indicates "not set".
func floatPtr(v float64) *float64 { return &v }
