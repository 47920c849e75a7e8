package debate

import "time"

// Artifact is one debate product: a proposal, critique or synthesis as
// classified by the type of the message that carried it.
type Artifact struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is the final structured outcome of a debate.
type Report struct {
	Topic           string     `json:"topic"`
	Goal            string     `json:"goal,omitempty"`
	Status          string     `json:"status"`
	RoundsCompleted int        `json:"rounds_completed"`
	PhasesCompleted []Phase    `json:"phases_completed"`
	ProposalCount   int        `json:"proposal_count"`
	CritiqueCount   int        `json:"critique_count"`
	SynthesisCount  int        `json:"synthesis_count"`
	Proposals       []Artifact `json:"proposals"`
	Critiques       []Artifact `json:"critiques"`
	Syntheses       []Artifact `json:"syntheses"`
	FinalConclusion string     `json:"final_conclusion"`
	ConsensusScore  float64    `json:"consensus_score"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     time.Time  `json:"completed_at"`
}

// report assembles the final report from the orchestrator's state.
func (o *Orchestrator) report(started time.Time) *Report {
	status := string(o.state)
	if o.state == StateRunning {
		status = string(StateFailed)
	}

	return &Report{
		Topic:           o.topic,
		Goal:            o.goal,
		Status:          status,
		RoundsCompleted: len(o.rounds),
		PhasesCompleted: append([]Phase(nil), o.phasesSeen...),
		ProposalCount:   len(o.proposals),
		CritiqueCount:   len(o.critiques),
		SynthesisCount:  len(o.syntheses),
		Proposals:       append([]Artifact(nil), o.proposals...),
		Critiques:       append([]Artifact(nil), o.critiques...),
		Syntheses:       append([]Artifact(nil), o.syntheses...),
		FinalConclusion: o.conclusion,
		ConsensusScore:  o.consensus.AverageConsensus(),
		StartedAt:       started,
		CompletedAt:     time.Now(),
	}
}

// Rounds returns the recorded rounds, oldest first.
func (o *Orchestrator) Rounds() []*Round {
	out := make([]*Round, len(o.rounds))
	copy(out, o.rounds)
	return out
}
