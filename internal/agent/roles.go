package agent

import (
	"fmt"
	"strings"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
)

// Phase step names. The orchestrator selects agents and passes one of these
// in TurnContext.Phase; each role policy covers the steps it participates in.
const (
	StepLiteratureReview = "literature_review"
	StepBreakthrough     = "breakthrough"
	StepIdeation         = "ideation"
	StepArchitecture     = "architecture"
	StepCritique         = "critique"
	StepStressTest       = "stress_test"
	StepSynthesis        = "synthesis"
	StepRefinement       = "refinement"
	StepExperimentDesign = "experiment_design"
	StepBenchmark        = "benchmark"
	StepFinalTheory      = "final_theory"
)

// policyStep is one phase step a role can execute.
type policyStep struct {
	schema       llm.Schema
	msgType      bus.MessageType
	priority     bus.Priority
	instructions func(TurnContext) string
}

// rolePolicy is the full per-role policy: the steps a role answers to.
type rolePolicy struct {
	steps map[string]policyStep
}

// DefaultRoster returns the built-in six-agent roster.
func DefaultRoster() []Config {
	return []Config{
		{
			Name:        "Visionary",
			Role:        RoleVisionary,
			Personality: "bold, imaginative, forward-thinking, unafraid of unconventional ideas",
			Expertise:   []string{"emerging technologies", "long-term trends", "paradigm shifts", "theoretical frameworks"},
		},
		{
			Name:        "Architect",
			Role:        RoleArchitect,
			Personality: "systematic, detail-oriented, focused on implementation and structure",
			Expertise:   []string{"system design", "software architecture", "scalability", "integration patterns"},
		},
		{
			Name:        "Critic",
			Role:        RoleCritic,
			Personality: "rigorous, skeptical, focused on identifying flaws and limitations",
			Expertise:   []string{"logical analysis", "bias detection", "risk assessment", "validation methods"},
		},
		{
			Name:        "Synthesizer",
			Role:        RoleSynthesizer,
			Personality: "holistic, integrative, focused on connecting disparate ideas",
			Expertise:   []string{"pattern recognition", "interdisciplinary research", "conceptual integration", "theory building"},
		},
		{
			Name:        "Experimentalist",
			Role:        RoleExperimentalist,
			Personality: "empirical, methodical, focused on validation and testing",
			Expertise:   []string{"experiment design", "statistical analysis", "ablation studies", "benchmarking"},
		},
		{
			Name:        "Evidence",
			Role:        RoleEvidence,
			Personality: "fact-based, research-oriented, focused on real-world data",
			Expertise:   []string{"literature review", "data analysis", "case studies", "state-of-the-art tracking"},
		},
	}
}

var policies = map[Role]rolePolicy{
	RoleVisionary: {steps: map[string]policyStep{
		StepBreakthrough: {
			schema: llm.NewSchema(
				llm.Field{Name: "paradigm_challenged", Kind: llm.KindString},
				llm.Field{Name: "new_paradigm", Kind: llm.KindString},
				llm.Field{Name: "enabling_factors", Kind: llm.KindArray},
				llm.Field{Name: "implementation_roadmap", Kind: llm.KindArray},
				llm.Field{Name: "risk_assessment", Kind: llm.KindString},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeProposal,
			priority: bus.PriorityHigh,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Challenge fundamental assumptions in this area.

CURRENT PARADIGM: %s

What if the fundamental assumptions are wrong? What paradigm shift would unlock unprecedented capabilities?
Think radically but ground your vision in emerging trends and theoretical possibilities.`, turn.Extra["current_paradigm"])
			},
		},
		StepIdeation: {
			schema: llm.NewSchema(
				llm.Field{Name: "title", Kind: llm.KindString},
				llm.Field{Name: "core_idea", Kind: llm.KindString},
				llm.Field{Name: "novelty", Kind: llm.KindString},
				llm.Field{Name: "potential_impact", Kind: llm.KindString},
				llm.Field{Name: "key_innovations", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeProposal,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Generate a bold, visionary proposal for research on: %s

Think beyond current paradigms. Consider:
- What would be a paradigm shift in this area?
- What seemingly impossible things could become possible?
- What cross-disciplinary inspirations could apply?

Propose something genuinely novel that could change the field.`, turn.Topic)
			},
		},
	}},

	RoleArchitect: {steps: map[string]policyStep{
		StepArchitecture: {
			schema: llm.NewSchema(
				llm.Field{Name: "design_name", Kind: llm.KindString},
				llm.Field{Name: "core_components", Kind: llm.KindArray},
				llm.Field{Name: "data_flow", Kind: llm.KindString},
				llm.Field{Name: "trade_offs", Kind: llm.KindArray},
				llm.Field{Name: "scalability_notes", Kind: llm.KindString},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeProposal,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Design a concrete system architecture for research on: %s

Turn the ideas on the table into an implementable structure:
- What are the core components and their responsibilities?
- How does data flow between them?
- Which trade-offs are you making, and why are they acceptable?`, turn.Topic)
			},
		},
		StepRefinement: {
			schema: llm.NewSchema(
				llm.Field{Name: "refined_design", Kind: llm.KindString},
				llm.Field{Name: "changes_made", Kind: llm.KindArray},
				llm.Field{Name: "critiques_resolved", Kind: llm.KindArray},
				llm.Field{Name: "remaining_concerns", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeSynthesis,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Refine the current design in light of the critiques raised.

CURRENT DESIGN:
%s

Address each substantive critique, keep what survived scrutiny, and state what concerns remain open.`, turn.Extra["current_design"])
			},
		},
	}},

	RoleCritic: {steps: map[string]policyStep{
		StepCritique: {
			schema: llm.NewSchema(
				llm.Field{Name: "score", Kind: llm.KindNumber},
				llm.Field{Name: "strengths", Kind: llm.KindArray},
				llm.Field{Name: "weaknesses", Kind: llm.KindArray},
				llm.Field{Name: "suggestions", Kind: llm.KindArray},
				llm.Field{Name: "reasoning", Kind: llm.KindString},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeCritique,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Critically evaluate this proposal by %s:

PROPOSAL:
%s

Be rigorous and specific. Identify logical flaws, hidden assumptions, feasibility risks and validation gaps. Score the proposal from 0 to 10.`,
					turn.Extra["target_author"], turn.Extra["target_proposal"])
			},
		},
		StepStressTest: {
			schema: llm.NewSchema(
				llm.Field{Name: "failure_modes", Kind: llm.KindArray},
				llm.Field{Name: "edge_cases", Kind: llm.KindArray},
				llm.Field{Name: "robustness_assessment", Kind: llm.KindString},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeCritique,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Stress-test this idea to destruction:

IDEA:
%s

Enumerate the conditions under which it fails, the edge cases nobody has considered, and your overall robustness assessment.`, turn.Extra["target_proposal"])
			},
		},
	}},

	RoleSynthesizer: {steps: map[string]policyStep{
		StepSynthesis: {
			schema: llm.NewSchema(
				llm.Field{Name: "unified_framework", Kind: llm.KindString},
				llm.Field{Name: "common_themes", Kind: llm.KindArray},
				llm.Field{Name: "resolved_contradictions", Kind: llm.KindArray},
				llm.Field{Name: "novel_insights", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeSynthesis,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Synthesize the proposals and critiques into a coherent framework for: %s

Identify common themes and patterns, resolve contradictions between the proposals, and build a unified framework that highlights genuinely novel insights.`, turn.Topic)
			},
		},
		StepFinalTheory: {
			schema: llm.NewSchema(
				llm.Field{Name: "theory_name", Kind: llm.KindString},
				llm.Field{Name: "statement", Kind: llm.KindString},
				llm.Field{Name: "supporting_evidence", Kind: llm.KindArray},
				llm.Field{Name: "open_questions", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeVerdict,
			priority: bus.PriorityHigh,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Craft the final unified theory from the syntheses reached so far.

SYNTHESES:
%s

State the theory precisely, marshal the supporting evidence from the debate, and name the questions the debate leaves open.`,
					strings.Join(tail(turn.Syntheses, 3), "\n---\n"))
			},
		},
	}},

	RoleExperimentalist: {steps: map[string]policyStep{
		StepExperimentDesign: {
			schema: llm.NewSchema(
				llm.Field{Name: "hypothesis", Kind: llm.KindString},
				llm.Field{Name: "methodology", Kind: llm.KindString},
				llm.Field{Name: "metrics", Kind: llm.KindArray},
				llm.Field{Name: "expected_outcomes", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeResult,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Design an experiment to validate this hypothesis:

HYPOTHESIS:
%s

Specify a falsifiable methodology, the metrics that decide the outcome, and what results you expect under the hypothesis and under the null.`, turn.Extra["hypothesis"])
			},
		},
		StepBenchmark: {
			schema: llm.NewSchema(
				llm.Field{Name: "benchmark_suite", Kind: llm.KindString},
				llm.Field{Name: "baselines", Kind: llm.KindArray},
				llm.Field{Name: "success_criteria", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeResult,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Design benchmarks for this approach:

APPROACH:
%s

Name the benchmark suite, the baselines to compare against, and the quantitative criteria that would count as success.`, turn.Extra["approach"])
			},
		},
	}},

	RoleEvidence: {steps: map[string]policyStep{
		StepLiteratureReview: {
			schema: llm.NewSchema(
				llm.Field{Name: "key_findings", Kind: llm.KindArray},
				llm.Field{Name: "state_of_the_art", Kind: llm.KindString},
				llm.Field{Name: "research_gaps", Kind: llm.KindArray},
				llm.Field{Name: "relevant_papers", Kind: llm.KindArray},
				llm.Field{Name: "confidence", Kind: llm.KindNumber},
			),
			msgType:  bus.TypeEvidence,
			priority: bus.PriorityNormal,
			instructions: func(turn TurnContext) string {
				return fmt.Sprintf(`Survey the existing literature on: %s

Summarize the key findings, characterize the current state of the art, and identify the gaps this research could fill. Cite the papers you are drawing on.`, turn.Topic)
			},
		},
	}},
}
