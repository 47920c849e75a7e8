package debate

import (
	"fmt"
	"time"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
)

// Round records one execution of a working phase: the messages contributed
// and the consensus reached by its end.
type Round struct {
	Number    int            `json:"number"`
	Phase     Phase          `json:"phase"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Messages  []*bus.Message `json:"messages,omitempty"`
	Summary   string         `json:"summary"`
	Consensus float64        `json:"consensus"`
}

func newRound(number int, phase Phase) *Round {
	return &Round{
		Number:    number,
		Phase:     phase,
		StartedAt: time.Now(),
	}
}

func (r *Round) close(consensus float64) {
	r.EndedAt = time.Now()
	r.Consensus = consensus
	r.Summary = fmt.Sprintf("%s: %d contributions, consensus %.2f",
		r.Phase, len(r.Messages), consensus)
}
