package debate

// Phase names one stage of the debate lifecycle.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseExploration    Phase = "exploration"
	PhaseProposal       Phase = "proposal"
	PhaseCritique       Phase = "critique"
	PhaseSynthesis      Phase = "synthesis"
	PhaseVerification   Phase = "verification"
	PhaseConvergence    Phase = "convergence"
	PhaseConclusion     Phase = "conclusion"
)

// workingPhases are the middle phases, visited once each in this order
// unless the debate short-circuits to conclusion. Each execution counts as a
// round; initialization and conclusion do not.
var workingPhases = []Phase{
	PhaseExploration,
	PhaseProposal,
	PhaseCritique,
	PhaseSynthesis,
	PhaseVerification,
	PhaseConvergence,
}

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateConverged State = "converged"
	StateMaxRounds State = "max_rounds"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)
