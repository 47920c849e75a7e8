package debate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/agent"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

// stubSteps maps phase steps to the message type a role emits for them,
// mirroring the real role policies without any model calls.
var stubSteps = map[agent.Role]map[string]bus.MessageType{
	agent.RoleEvidence: {
		agent.StepLiteratureReview: bus.TypeEvidence,
	},
	agent.RoleVisionary: {
		agent.StepBreakthrough: bus.TypeProposal,
		agent.StepIdeation:     bus.TypeProposal,
	},
	agent.RoleArchitect: {
		agent.StepArchitecture: bus.TypeProposal,
		agent.StepRefinement:   bus.TypeSynthesis,
	},
	agent.RoleCritic: {
		agent.StepCritique:   bus.TypeCritique,
		agent.StepStressTest: bus.TypeCritique,
	},
	agent.RoleSynthesizer: {
		agent.StepSynthesis:   bus.TypeSynthesis,
		agent.StepFinalTheory: bus.TypeVerdict,
	},
	agent.RoleExperimentalist: {
		agent.StepExperimentDesign: bus.TypeResult,
		agent.StepBenchmark:        bus.TypeResult,
	},
}

// stubAgent is a deterministic agent: it emits a canned message for each
// step its role covers, with a fixed confidence.
type stubAgent struct {
	name       string
	role       agent.Role
	confidence float64
	failing    bool

	acts int
}

func (s *stubAgent) Name() string     { return s.name }
func (s *stubAgent) Role() agent.Role { return s.role }

func (s *stubAgent) Act(_ context.Context, turn agent.TurnContext) (*bus.Message, error) {
	msgType, ok := stubSteps[s.role][turn.Phase]
	if !ok {
		return nil, nil
	}
	if s.failing {
		return nil, errors.New("model unavailable")
	}
	s.acts++
	msg := bus.NewMessage(s.name, msgType, fmt.Sprintf("%s output %d from %s", turn.Phase, s.acts, s.name))
	msg.Confidence = s.confidence
	return msg, nil
}

// stubRoster builds a full six-role roster with the given confidence.
func stubRoster(confidence float64) []agent.Agent {
	roles := []agent.Role{
		agent.RoleVisionary,
		agent.RoleArchitect,
		agent.RoleCritic,
		agent.RoleSynthesizer,
		agent.RoleExperimentalist,
		agent.RoleEvidence,
	}
	out := make([]agent.Agent, 0, len(roles))
	for _, r := range roles {
		out = append(out, &stubAgent{name: string(r), role: r, confidence: confidence})
	}
	return out
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	t.Run("empty roster", func(t *testing.T) {
		_, err := New(Config{}, nil, b, nil, nil)
		assert.ErrorIs(t, err, ErrNoAgents)
	})

	t.Run("nil bus", func(t *testing.T) {
		_, err := New(Config{}, stubRoster(0.9), nil, nil, nil)
		assert.ErrorIs(t, err, ErrNilBus)
	})

	t.Run("missing role is fatal", func(t *testing.T) {
		roster := stubRoster(0.9)
		var withoutSynthesizer []agent.Agent
		for _, a := range roster {
			if a.Role() != agent.RoleSynthesizer {
				withoutSynthesizer = append(withoutSynthesizer, a)
			}
		}
		_, err := New(Config{}, withoutSynthesizer, b, nil, nil)
		assert.ErrorIs(t, err, ErrMissingRole)
	})
}

func TestRunRequiresTopic(t *testing.T) {
	t.Parallel()
	o, err := New(Config{}, stubRoster(0.9), bus.New(nil), nil, nil)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

// TestRunStopsAtRoundBudget validates that the round budget is unconditional:
// with consensus never reached, the debate ends at exactly MaxRounds rounds,
// skipping the later working phases entirely.
func TestRunStopsAtRoundBudget(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxRounds: 3, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, stubRoster(0.3), bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "a practical design")
	require.NoError(t, err)

	assert.Equal(t, "max_rounds", report.Status)
	assert.Equal(t, 3, report.RoundsCompleted)
	assert.LessOrEqual(t, len(report.PhasesCompleted), 8)
	assert.Equal(t, PhaseInitialization, report.PhasesCompleted[0])
	assert.Contains(t, report.PhasesCompleted, PhaseConclusion)

	// Three rounds cover exploration, proposal and critique: the breakthrough
	// plus two proposal-phase contributions, each of which drew a critique.
	assert.Equal(t, 3, report.ProposalCount)
	assert.Equal(t, 2, report.CritiqueCount)
	assert.Len(t, report.Proposals, report.ProposalCount)

	// The budget fired before any synthesis or verdict, so there is nothing
	// to conclude with.
	assert.Empty(t, report.FinalConclusion)

	rounds := o.Rounds()
	require.Len(t, rounds, 3)
	assert.Equal(t, PhaseExploration, rounds[0].Phase)
	assert.Equal(t, PhaseProposal, rounds[1].Phase)
	assert.Equal(t, PhaseCritique, rounds[2].Phase)
	assert.Equal(t, 1, rounds[0].Number)
	assert.NotEmpty(t, rounds[2].Summary)
}

// TestRunVisitsEachWorkingPhaseOnce validates the single-pass walk: with a
// round budget far larger than the phase list and consensus never reached,
// every working phase runs exactly once, the debate completes the full walk
// and the convergence verdict becomes the conclusion.
func TestRunVisitsEachWorkingPhaseOnce(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxRounds: 50, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, stubRoster(0.3), bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "a practical design")
	require.NoError(t, err)

	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, 6, report.RoundsCompleted)

	rounds := o.Rounds()
	require.Len(t, rounds, 6)
	seen := make(map[Phase]int, len(rounds))
	for _, r := range rounds {
		seen[r.Phase]++
	}
	for phase, count := range seen {
		assert.Equal(t, 1, count, "phase %s ran more than once", phase)
	}

	assert.Equal(t, []Phase{
		PhaseInitialization,
		PhaseExploration,
		PhaseProposal,
		PhaseCritique,
		PhaseSynthesis,
		PhaseVerification,
		PhaseConvergence,
		PhaseConclusion,
	}, report.PhasesCompleted)
	assert.NotEmpty(t, report.FinalConclusion)
}

// TestConclusionFallsBackToLastSynthesis validates the conclusion fallback:
// when the budget ends the debate before the convergence verdict, the last
// synthesis stands in as the conclusion.
func TestConclusionFallsBackToLastSynthesis(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxRounds: 5, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, stubRoster(0.3), bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "")
	require.NoError(t, err)

	assert.Equal(t, "max_rounds", report.Status)
	assert.NotContains(t, report.PhasesCompleted, PhaseConvergence)
	require.NotEmpty(t, report.Syntheses)
	assert.Equal(t, report.Syntheses[len(report.Syntheses)-1].Content, report.FinalConclusion)
}

// TestRunConvergesOnConsensus validates consensus termination once the round
// floor is reached.
func TestRunConvergesOnConsensus(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxRounds: 20, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, stubRoster(0.95), bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "")
	require.NoError(t, err)

	assert.Equal(t, "converged", report.Status)
	assert.Equal(t, 3, report.RoundsCompleted)
	assert.GreaterOrEqual(t, report.ConsensusScore, 0.75)
	assert.Equal(t, StateConverged, o.State())
}

// TestRunFloorBlocksEarlyConvergence validates that perfect consensus below
// the round floor never converges; the budget ends the debate instead.
func TestRunFloorBlocksEarlyConvergence(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxRounds: 2, MinConsensusThreshold: 0.5, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, stubRoster(1.0), bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "")
	require.NoError(t, err)

	assert.Equal(t, "max_rounds", report.Status)
	assert.Equal(t, 2, report.RoundsCompleted)
}

// TestFailingAgentIsAbsentNotFatal validates degraded progress: a role whose
// turns always error contributes nothing, but the debate still completes.
func TestFailingAgentIsAbsentNotFatal(t *testing.T) {
	t.Parallel()

	roster := stubRoster(0.4)
	for _, a := range roster {
		if a.Role() == agent.RoleCritic {
			a.(*stubAgent).failing = true
		}
	}

	cfg := Config{MaxRounds: 3, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 3}
	o, err := New(cfg, roster, bus.New(nil), nil, nil)
	require.NoError(t, err)

	report, err := o.Run(context.Background(), "sparse attention", "")
	require.NoError(t, err)

	assert.Equal(t, 0, report.CritiqueCount)
	assert.Greater(t, report.ProposalCount, 0)
	assert.Contains(t, report.PhasesCompleted, PhaseCritique)
}

func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	o, err := New(Config{}, stubRoster(0.3), bus.New(nil), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Run(ctx, "sparse attention", "")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, "failed", report.Status)
}

// TestLiteratureFeedsSharedKnowledge validates that a structured literature
// review lands in the shared knowledge base as facts and papers.
func TestLiteratureFeedsSharedKnowledge(t *testing.T) {
	t.Parallel()

	roster := stubRoster(0.3)
	structured := &structuredEvidenceAgent{confidence: 0.3}
	for i, a := range roster {
		if a.Role() == agent.RoleEvidence {
			roster[i] = structured
		}
	}

	shared := memory.NewSharedKnowledgeBase(nil)
	cfg := Config{MaxRounds: 1, MinConsensusThreshold: 0.75, MinRoundsBeforeConvergence: 1}
	o, err := New(cfg, roster, bus.New(nil), shared, nil)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "sparse attention", "")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, shared.FactCount(), 1)
	assert.Len(t, shared.Papers(), 1)
}

// structuredEvidenceAgent emits a literature review carrying a decoded
// structured payload, the way a real agent does.
type structuredEvidenceAgent struct {
	confidence float64
}

func (s *structuredEvidenceAgent) Name() string     { return "Evidence" }
func (s *structuredEvidenceAgent) Role() agent.Role { return agent.RoleEvidence }

func (s *structuredEvidenceAgent) Act(_ context.Context, turn agent.TurnContext) (*bus.Message, error) {
	if turn.Phase != agent.StepLiteratureReview {
		return nil, nil
	}
	msg := bus.NewMessage("Evidence", bus.TypeEvidence, "survey of sparse attention")
	msg.Confidence = s.confidence
	msg.Metadata = map[string]any{
		"structured": map[string]any{
			"key_findings":     []any{"local windows suffice for most tasks"},
			"state_of_the_art": "block-sparse kernels",
			"relevant_papers":  []any{"Longformer"},
		},
	}
	return msg, nil
}
