package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFactDeduplication validates that facts are keyed by content: re-adding
// the same statement overwrites instead of duplicating.
func TestFactDeduplication(t *testing.T) {
	t.Parallel()
	kb := NewSharedKnowledgeBase(nil)

	first, err := kb.AddFact("attention scales quadratically", "alice", 0.8)
	require.NoError(t, err)
	second, err := kb.AddFact("attention scales quadratically", "bob", 0.9)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, kb.FactCount())

	facts := kb.SearchFacts("quadratically")
	require.Len(t, facts, 1)
	assert.Equal(t, "bob", facts[0].Source)
}

func TestAddFactEmptyContent(t *testing.T) {
	t.Parallel()
	kb := NewSharedKnowledgeBase(nil)
	_, err := kb.AddFact("", "alice", 0.8)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestVerifyFact(t *testing.T) {
	t.Parallel()
	kb := NewSharedKnowledgeBase(nil)

	fact, err := kb.AddFact("dropout reduces overfitting", "alice", 0.9)
	require.NoError(t, err)

	assert.True(t, kb.VerifyFact(fact.ID, "bob"))
	assert.False(t, kb.VerifyFact("no-such-id", "bob"))

	facts := kb.SearchFacts("dropout")
	require.Len(t, facts, 1)
	assert.Equal(t, []string{"bob"}, facts[0].VerifiedBy)
}

func TestSearchFactsCaseInsensitive(t *testing.T) {
	t.Parallel()
	kb := NewSharedKnowledgeBase(nil)

	_, err := kb.AddFact("Mixture of Experts improves throughput", "alice", 0.7)
	require.NoError(t, err)

	assert.Len(t, kb.SearchFacts("mixture of experts"), 1)
	assert.Len(t, kb.SearchFacts("EXPERTS"), 1)
	assert.Empty(t, kb.SearchFacts("distillation"))
}

func TestCodeAndExperiments(t *testing.T) {
	t.Parallel()
	kb := NewSharedKnowledgeBase(nil)

	kb.AddCode("topk", "func topk(xs []float64, k int) []float64 { return xs[:k] }", "go")
	snippet, ok := kb.Code("topk")
	require.True(t, ok)
	assert.Equal(t, "go", snippet.Language)

	kb.AddExperimentResult("ablation", map[string]any{"accuracy": 0.91}, "heads 5-8 are redundant")
	exps := kb.Experiments()
	require.Len(t, exps, 1)
	assert.Equal(t, "ablation", exps[0].Name)
}

// TestSharedSaveLoadRoundtrip validates shared knowledge persistence through
// a FileStore.
func TestSharedSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	kb := NewSharedKnowledgeBase(nil)
	_, err = kb.AddFact("residual connections stabilize training", "alice", 0.9)
	require.NoError(t, err)
	kb.AddPaper("Attention Is All You Need", []string{"Vaswani et al."}, "the transformer paper", "", nil)
	kb.AddCode("norm", "func norm(x float64) float64 { return x }", "go")
	require.NoError(t, kb.Save(ctx, store))

	restored := NewSharedKnowledgeBase(nil)
	require.NoError(t, restored.Load(ctx, store))

	assert.Equal(t, 1, restored.FactCount())
	require.Len(t, restored.Papers(), 1)
	assert.Equal(t, "Attention Is All You Need", restored.Papers()[0].Title)
	_, ok := restored.Code("norm")
	assert.True(t, ok)
}

func TestSharedLoadMissingSnapshot(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	kb := NewSharedKnowledgeBase(nil)
	require.NoError(t, kb.Load(context.Background(), store))
	assert.Equal(t, 0, kb.FactCount())
}
