package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

// testClient builds an llm.Client around a canned response.
func testClient(t *testing.T, response string) *llm.Client {
	t.Helper()
	gen := llm.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return response, nil
	})
	client, err := llm.NewClient(gen, llm.Config{RequestsPerMinute: 600000}, nil)
	require.NoError(t, err)
	return client
}

// recordingClient additionally captures the last prompt sent upstream.
func recordingClient(t *testing.T, response string, prompt *string) *llm.Client {
	t.Helper()
	gen := llm.GeneratorFunc(func(_ context.Context, p string) (string, error) {
		*prompt = p
		return response, nil
	})
	client, err := llm.NewClient(gen, llm.Config{RequestsPerMinute: 600000}, nil)
	require.NoError(t, err)
	return client
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)
	client := testClient(t, "{}")

	t.Run("empty name", func(t *testing.T) {
		_, err := New(Config{Role: RoleCritic}, b, nil, client, memory.Config{}, nil)
		assert.ErrorIs(t, err, ErrEmptyName)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := New(Config{Name: "X", Role: "oracle"}, b, nil, client, memory.Config{}, nil)
		assert.ErrorIs(t, err, ErrUnknownRole)
	})

	t.Run("nil bus", func(t *testing.T) {
		_, err := New(Config{Name: "X", Role: RoleCritic}, nil, nil, client, memory.Config{}, nil)
		assert.ErrorIs(t, err, ErrNilBus)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := New(Config{Name: "X", Role: RoleCritic}, b, nil, nil, memory.Config{}, nil)
		assert.ErrorIs(t, err, ErrNilClient)
	})
}

// TestDefaultRosterConstructs validates that every shipped role has a policy
// and builds cleanly.
func TestDefaultRosterConstructs(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)
	client := testClient(t, "{}")

	roster := DefaultRoster()
	require.Len(t, roster, 6)
	for _, cfg := range roster {
		a, err := New(cfg, b, nil, client, memory.Config{}, nil)
		require.NoError(t, err, "role %s", cfg.Role)
		assert.Equal(t, cfg.Name, a.Name())
		assert.Equal(t, cfg.Role, a.Role())
	}
}

// TestActUncoveredPhase validates the quiet no-op: a phase outside the
// role's policy yields no message and no error.
func TestActUncoveredPhase(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	a, err := New(Config{Name: "Critic", Role: RoleCritic}, b, nil, testClient(t, "{}"), memory.Config{}, nil)
	require.NoError(t, err)

	msg, err := a.Act(context.Background(), TurnContext{Phase: StepIdeation, Topic: "x"})
	require.NoError(t, err)
	assert.Nil(t, msg)
}

// TestActPublishesStructuredMessage validates a full critic turn: the prompt
// carries persona and target, the reply is decoded and rendered, and the
// message lands on the bus with the policy's type.
func TestActPublishesStructuredMessage(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	var received []*bus.Message
	require.NoError(t, b.Subscribe("observer", func(m *bus.Message) {
		received = append(received, m)
	}))

	response := `{"score": 7, "strengths": ["clear problem statement"], "weaknesses": [],
		"suggestions": ["add a baseline"], "reasoning": "mostly sound", "confidence": 0.65}`
	var prompt string
	client := recordingClient(t, response, &prompt)

	a, err := New(Config{
		Name:        "Critic",
		Role:        RoleCritic,
		Personality: "rigorous and skeptical",
		Expertise:   []string{"logical analysis"},
	}, b, nil, client, memory.Config{}, nil)
	require.NoError(t, err)

	msg, err := a.Act(context.Background(), TurnContext{
		Phase: StepCritique,
		Topic: "sparse attention",
		Extra: map[string]string{
			"target_proposal": "route tokens by learned hash",
			"target_author":   "Visionary",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, bus.TypeCritique, msg.Type)
	assert.Equal(t, "Critic", msg.Sender)
	assert.Equal(t, 0.65, msg.Confidence)
	assert.Equal(t, StepCritique, msg.Metadata["phase"])

	assert.Contains(t, msg.Content, "**Score:** 7")
	assert.Contains(t, msg.Content, "clear problem statement")
	assert.NotContains(t, msg.Content, "**Weaknesses:**")
	assert.NotContains(t, msg.Content, "confidence")

	assert.Contains(t, prompt, "rigorous and skeptical")
	assert.Contains(t, prompt, "route tokens by learned hash")
	assert.Contains(t, prompt, "=== YOUR TASK ===")

	require.Len(t, received, 1)
	assert.Equal(t, msg.ID, received[0].ID)
}

// TestActDefaultConfidence validates the 0.8 fallback when the reply has no
// usable confidence.
func TestActDefaultConfidence(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	a, err := New(Config{Name: "Visionary", Role: RoleVisionary}, b, nil,
		testClient(t, `{"title": "an idea"}`), memory.Config{}, nil)
	require.NoError(t, err)

	msg, err := a.Act(context.Background(), TurnContext{Phase: StepIdeation, Topic: "x"})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, 0.8, msg.Confidence)
}

// TestOnMessageRecordsOtherAgents validates that bus traffic from peers
// enters memory, while the agent's own messages are skipped.
func TestOnMessageRecordsOtherAgents(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	a, err := New(Config{Name: "Critic", Role: RoleCritic}, b, nil, testClient(t, "{}"), memory.Config{}, nil)
	require.NoError(t, err)

	own := bus.NewMessage("Critic", bus.TypeMeta, "my own note")
	require.NoError(t, b.Publish(own))
	assert.Equal(t, 0, a.Memory().ShortTermLen())

	peer := bus.NewMessage("Visionary", bus.TypeProposal, "a bold proposal")
	peer.Priority = bus.PriorityHigh
	require.NoError(t, b.Publish(peer))
	assert.Equal(t, 1, a.Memory().ShortTermLen())

	results := a.Memory().Search("bold proposal", []string{"message"}, 0, 5)
	require.Len(t, results, 1)
	assert.Equal(t, 0.7, results[0].Importance)
}

// TestActStoresThought validates that a turn's own output is remembered.
func TestActStoresThought(t *testing.T) {
	t.Parallel()
	b := bus.New(nil)

	a, err := New(Config{Name: "Visionary", Role: RoleVisionary}, b, nil,
		testClient(t, `{"title": "memorable idea", "core_idea": "hash routing"}`), memory.Config{}, nil)
	require.NoError(t, err)

	_, err = a.Act(context.Background(), TurnContext{Phase: StepIdeation, Topic: "routing"})
	require.NoError(t, err)

	results := a.Memory().Search("memorable idea", []string{"thinking"}, 0, 5)
	require.Len(t, results, 1)
	assert.True(t, strings.HasPrefix(results[0].Content, "Thought ("+StepIdeation+")"))
}
