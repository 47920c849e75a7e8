package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

// Common errors for agent construction.
var (
	ErrEmptyName   = errors.New("agent name cannot be empty")
	ErrUnknownRole = errors.New("unknown agent role")
	ErrNilBus      = errors.New("bus is required")
	ErrNilClient   = errors.New("llm client is required")
)

// Role identifies an agent's debate function.
type Role string

const (
	RoleVisionary       Role = "visionary"
	RoleArchitect       Role = "architect"
	RoleCritic          Role = "critic"
	RoleSynthesizer     Role = "synthesizer"
	RoleExperimentalist Role = "experimentalist"
	RoleEvidence        Role = "evidence"
)

// TurnContext carries everything an agent may need for one turn: the phase
// step being executed, the debate subject, the accumulated artifact history,
// and step-specific extras.
type TurnContext struct {
	Phase     string
	Topic     string
	Goal      string
	Proposals []string
	Critiques []string
	Syntheses []string
	Extra     map[string]string
}

// Agent is the single capability the orchestrator depends on. Act returns
// the message the agent contributed, or nil when the phase does not concern
// it. A non-nil error means the generator exhausted its retries; the caller
// treats the contribution as absent.
type Agent interface {
	Name() string
	Role() Role
	Act(ctx context.Context, turn TurnContext) (*bus.Message, error)
}

// Config describes one agent in the roster.
type Config struct {
	Name        string   `koanf:"name"`
	Role        Role     `koanf:"role"`
	Personality string   `koanf:"personality"`
	Expertise   []string `koanf:"expertise"`
}

const maxHistory = 50

// ResearchAgent is the concrete agent type. Role differences live entirely
// in the policy data.
type ResearchAgent struct {
	cfg    Config
	policy rolePolicy

	bus    *bus.Bus
	mem    *memory.Memory
	shared *memory.SharedKnowledgeBase
	client *llm.Client
	logger *zap.Logger

	history []*bus.Message
}

// New creates an agent, wires its memory, and subscribes it to the bus.
func New(cfg Config, b *bus.Bus, shared *memory.SharedKnowledgeBase, client *llm.Client, memCfg memory.Config, logger *zap.Logger) (*ResearchAgent, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}
	policy, ok := policies[cfg.Role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, cfg.Role)
	}
	if b == nil {
		return nil, ErrNilBus
	}
	if client == nil {
		return nil, ErrNilClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mem, err := memory.New(cfg.Name, memCfg, logger)
	if err != nil {
		return nil, err
	}

	a := &ResearchAgent{
		cfg:    cfg,
		policy: policy,
		bus:    b,
		mem:    mem,
		shared: shared,
		client: client,
		logger: logger.Named(cfg.Name),
	}

	if err := b.Subscribe(cfg.Name, a.onMessage); err != nil {
		return nil, err
	}
	return a, nil
}

// Name returns the agent's name.
func (a *ResearchAgent) Name() string { return a.cfg.Name }

// Role returns the agent's role.
func (a *ResearchAgent) Role() Role { return a.cfg.Role }

// Memory exposes the agent's memory for session checkpointing.
func (a *ResearchAgent) Memory() *memory.Memory { return a.mem }

// onMessage records other agents' traffic into conversation history and
// memory. High-priority messages are remembered as more important.
func (a *ResearchAgent) onMessage(msg *bus.Message) {
	if msg.Sender == a.cfg.Name {
		return
	}

	a.history = append(a.history, msg)
	if len(a.history) > maxHistory {
		a.history = a.history[len(a.history)-maxHistory:]
	}

	importance := 0.5
	if msg.Priority == bus.PriorityHigh || msg.Priority == bus.PriorityCritical {
		importance = 0.7
	}
	if _, err := a.mem.Add(msg.Content, "message_from_"+msg.Sender, importance,
		[]string{"message", string(msg.Type)}); err != nil {
		a.logger.Warn("failed to store message in memory", zap.Error(err))
	}
}

// Act executes one turn. The phase selects a step from the role policy;
// unknown phases contribute nothing.
func (a *ResearchAgent) Act(ctx context.Context, turn TurnContext) (*bus.Message, error) {
	step, ok := a.policy.steps[turn.Phase]
	if !ok {
		return nil, nil
	}

	result, err := a.client.CompleteStructured(ctx, a.buildPrompt(step, turn), step.schema)
	if err != nil {
		return nil, fmt.Errorf("agent %s failed to act in %s: %w", a.cfg.Name, turn.Phase, err)
	}

	content := renderContent(step.schema, result)
	msg := bus.NewMessage(a.cfg.Name, step.msgType, content)
	msg.Priority = step.priority
	msg.Confidence = confidenceFrom(result)
	msg.Metadata = map[string]any{
		"phase":      turn.Phase,
		"structured": result,
	}

	if err := a.bus.Publish(msg); err != nil {
		return nil, err
	}
	a.history = append(a.history, msg)

	// Remember the conclusion of this turn the same way a thought is
	// remembered: important enough to survive eviction.
	summary := content
	if len(summary) > 500 {
		summary = summary[:500]
	}
	if _, err := a.mem.Add("Thought ("+turn.Phase+"): "+summary, "thinking", 0.8, []string{"thinking"}); err != nil {
		a.logger.Warn("failed to store thought in memory", zap.Error(err))
	}

	return msg, nil
}

// buildPrompt assembles persona, conversation context, relevant memories and
// the step instruction into one prompt.
func (a *ResearchAgent) buildPrompt(step policyStep, turn TurnContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a specialized AI research agent.\n", a.cfg.Name)
	fmt.Fprintf(&b, "ROLE: %s\nPERSONALITY: %s\nEXPERTISE: %s\n\n",
		strings.ToUpper(string(a.cfg.Role)), a.cfg.Personality, strings.Join(a.cfg.Expertise, ", "))

	b.WriteString("=== RESEARCH CONTEXT ===\n")
	fmt.Fprintf(&b, "Topic: %s\n", turn.Topic)
	if turn.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", turn.Goal)
	}

	if recent := a.recentConversation(); recent != "" {
		b.WriteString("\nRecent Conversation:\n")
		b.WriteString(recent)
		b.WriteByte('\n')
	}

	if memCtx := a.mem.Context(turn.Topic, 3); memCtx != "" {
		b.WriteString("\nRelevant Past Knowledge:\n")
		b.WriteString(memCtx)
		b.WriteByte('\n')
	}

	writeSection(&b, "Proposals so far", tail(turn.Proposals, 4))
	writeSection(&b, "Critiques so far", tail(turn.Critiques, 4))
	writeSection(&b, "Syntheses so far", tail(turn.Syntheses, 3))

	b.WriteString("\n=== YOUR TASK ===\n")
	b.WriteString(step.instructions(turn))
	fmt.Fprintf(&b, "\n\nProvide your response in your characteristic style as %s (%s).", a.cfg.Name, a.cfg.Role)
	return b.String()
}

// recentConversation formats the last few received messages, truncated.
func (a *ResearchAgent) recentConversation() string {
	msgs := a.history
	if len(msgs) > 10 {
		msgs = msgs[len(msgs)-10:]
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if len(content) > 300 {
			content = content[:300] + "..."
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", m.Sender, content))
	}
	return strings.Join(parts, "\n")
}

// renderContent formats the structured result as readable message text,
// walking schema fields in declaration order.
func renderContent(schema llm.Schema, result map[string]any) string {
	var b strings.Builder
	for _, f := range schema.Fields {
		value, ok := result[f.Name]
		if !ok || f.Name == "confidence" {
			continue
		}
		label := titleCase(f.Name)
		switch v := value.(type) {
		case []any:
			if len(v) == 0 {
				continue
			}
			fmt.Fprintf(&b, "**%s:**\n", label)
			for _, item := range v {
				fmt.Fprintf(&b, "  - %v\n", item)
			}
		case map[string]any:
			if len(v) == 0 {
				continue
			}
			fmt.Fprintf(&b, "**%s:** %v\n", label, v)
		default:
			fmt.Fprintf(&b, "**%s:** %v\n", label, v)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// confidenceFrom reads the structured confidence field, defaulting to 0.8
// when absent or out of range.
func confidenceFrom(result map[string]any) float64 {
	if v, ok := result["confidence"].(float64); ok && v >= 0 && v <= 1 {
		return v
	}
	return 0.8
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		if len(item) > 400 {
			item = item[:400] + "..."
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// titleCase turns a snake_case field name into a display label.
func titleCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func tail(items []string, n int) []string {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

var _ Agent = (*ResearchAgent)(nil)
