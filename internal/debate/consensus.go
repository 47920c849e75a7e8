package debate

import (
	"fmt"
	"sort"
	"sync"
)

// ConsensusMetrics tracks pairwise agreement between agents across rounds.
//
// Agreement is symmetric and stored once per unordered pair. The trend
// records the average consensus at each snapshot, so a caller can see
// whether the debate is moving toward or away from agreement.
type ConsensusMetrics struct {
	mu        sync.Mutex
	agreement map[string]map[string]float64
	trend     []float64
}

// NewConsensusMetrics creates empty metrics.
func NewConsensusMetrics() *ConsensusMetrics {
	return &ConsensusMetrics{
		agreement: make(map[string]map[string]float64),
	}
}

// UpdateAgreement records the agreement score between two agents, replacing
// any previous score for the pair. Scores are clamped to [0,1]; a pair of an
// agent with itself is ignored.
func (c *ConsensusMetrics) UpdateAgreement(a, b string, score float64) {
	if a == b || a == "" || b == "" {
		return
	}
	if a > b {
		a, b = b, a
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agreement[a] == nil {
		c.agreement[a] = make(map[string]float64)
	}
	c.agreement[a][b] = score
}

// AverageConsensus returns the mean agreement over all known pairs, or 0
// when no agreement has been recorded.
func (c *ConsensusMetrics) AverageConsensus() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.averageLocked()
}

func (c *ConsensusMetrics) averageLocked() float64 {
	var sum float64
	var n int
	for _, row := range c.agreement {
		for _, score := range row {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Snapshot appends the current average to the trend and returns it.
func (c *ConsensusMetrics) Snapshot() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	avg := c.averageLocked()
	c.trend = append(c.trend, avg)
	return avg
}

// ConfidenceTrend returns the recorded snapshots, oldest first.
func (c *ConsensusMetrics) ConfidenceTrend() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.trend))
	copy(out, c.trend)
	return out
}

// KeyDisagreements lists the pairs whose agreement sits below the threshold,
// sorted for stable output.
func (c *ConsensusMetrics) KeyDisagreements(threshold float64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for a, row := range c.agreement {
		for b, score := range row {
			if score < threshold {
				out = append(out, fmt.Sprintf("%s vs %s (%.2f)", a, b, score))
			}
		}
	}
	sort.Strings(out)
	return out
}
