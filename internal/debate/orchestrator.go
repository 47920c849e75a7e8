package debate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/agent"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

const instrumentationName = "github.com/AKMessi/multi-agent-ai-researcher/internal/debate"

// Common errors for orchestrator construction and execution.
var (
	ErrNoAgents    = errors.New("at least one agent is required")
	ErrNilBus      = errors.New("bus is required")
	ErrMissingRole = errors.New("roster is missing a required role")
	ErrEmptyTopic  = errors.New("topic cannot be empty")
)

// requiredRoles must all be present in the roster; the phase handlers depend
// on each of them.
var requiredRoles = []agent.Role{
	agent.RoleVisionary,
	agent.RoleArchitect,
	agent.RoleCritic,
	agent.RoleSynthesizer,
	agent.RoleExperimentalist,
	agent.RoleEvidence,
}

// Config tunes debate termination.
type Config struct {
	// MaxRounds is the hard round budget. It terminates the debate
	// regardless of consensus (default: 10).
	MaxRounds int `koanf:"max_rounds"`

	// MinConsensusThreshold is the average agreement at which the debate
	// counts as converged (default: 0.75).
	MinConsensusThreshold float64 `koanf:"min_consensus_threshold"`

	// MinRoundsBeforeConvergence is the floor below which consensus is
	// never checked (default: 3).
	MinRoundsBeforeConvergence int `koanf:"min_rounds_before_convergence"`
}

// DefaultConfig returns the debate defaults.
func DefaultConfig() Config {
	return Config{
		MaxRounds:                  10,
		MinConsensusThreshold:      0.75,
		MinRoundsBeforeConvergence: 3,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.MaxRounds == 0 {
		c.MaxRounds = defaults.MaxRounds
	}
	if c.MinConsensusThreshold == 0 {
		c.MinConsensusThreshold = defaults.MinConsensusThreshold
	}
	if c.MinRoundsBeforeConvergence == 0 {
		c.MinRoundsBeforeConvergence = defaults.MinRoundsBeforeConvergence
	}
}

// Orchestrator drives one debate to completion.
type Orchestrator struct {
	cfg    Config
	agents []agent.Agent
	byRole map[agent.Role]agent.Agent
	bus    *bus.Bus
	shared *memory.SharedKnowledgeBase
	logger *zap.Logger

	tracer       trace.Tracer
	phaseCounter metric.Int64Counter
	msgCounter   metric.Int64Counter

	topic string
	goal  string

	state      State
	consensus  *ConsensusMetrics
	rounds     []*Round
	phasesSeen []Phase

	proposals  []Artifact
	critiques  []Artifact
	syntheses  []Artifact
	conclusion string

	handlers map[Phase]func(context.Context, *Round)
}

// New creates an orchestrator over the given roster. Every required role
// must be covered by at least one agent; when a role appears more than once
// the first agent in roster order is used.
func New(cfg Config, agents []agent.Agent, b *bus.Bus, shared *memory.SharedKnowledgeBase, logger *zap.Logger) (*Orchestrator, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if b == nil {
		return nil, ErrNilBus
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	byRole := make(map[agent.Role]agent.Agent, len(agents))
	for _, a := range agents {
		if _, ok := byRole[a.Role()]; !ok {
			byRole[a.Role()] = a
		}
	}
	for _, role := range requiredRoles {
		if _, ok := byRole[role]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRole, role)
		}
	}

	o := &Orchestrator{
		cfg:       cfg,
		agents:    agents,
		byRole:    byRole,
		bus:       b,
		shared:    shared,
		logger:    logger.Named("orchestrator"),
		tracer:    otel.Tracer(instrumentationName),
		state:     StateIdle,
		consensus: NewConsensusMetrics(),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	o.phaseCounter, err = meter.Int64Counter("debate.phases.executed",
		metric.WithDescription("Number of debate phases executed"))
	if err != nil {
		o.logger.Warn("failed to create phase counter", zap.Error(err))
	}
	o.msgCounter, err = meter.Int64Counter("debate.messages.contributed",
		metric.WithDescription("Number of agent contributions collected"))
	if err != nil {
		o.logger.Warn("failed to create message counter", zap.Error(err))
	}

	o.handlers = map[Phase]func(context.Context, *Round){
		PhaseInitialization: o.runInitialization,
		PhaseExploration:    o.runExploration,
		PhaseProposal:       o.runProposal,
		PhaseCritique:       o.runCritique,
		PhaseSynthesis:      o.runSynthesis,
		PhaseVerification:   o.runVerification,
		PhaseConvergence:    o.runConvergence,
		PhaseConclusion:     o.runConclusion,
	}
	return o, nil
}

// State returns the orchestrator lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Consensus exposes the consensus metrics.
func (o *Orchestrator) Consensus() *ConsensusMetrics { return o.consensus }

// Run executes the full debate on a topic and returns the report.
//
// Cancellation is honored at phase boundaries only: a phase in flight is
// allowed to finish, and the error is the context's error.
func (o *Orchestrator) Run(ctx context.Context, topic, goal string) (*Report, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	o.topic = topic
	o.goal = goal
	o.state = StateRunning
	started := time.Now()

	ctx, span := o.tracer.Start(ctx, "debate.run",
		trace.WithAttributes(
			attribute.String("debate.topic", topic),
			attribute.Int("debate.max_rounds", o.cfg.MaxRounds),
		))
	defer span.End()

	o.logger.Info("debate started",
		zap.String("topic", topic),
		zap.Int("max_rounds", o.cfg.MaxRounds),
		zap.Int("agents", len(o.agents)),
	)

	o.execPhase(ctx, PhaseInitialization, nil)

	// Working phases run once each, in order. Between phases the
	// termination predicate may short-circuit the walk straight to the
	// conclusion.
	for _, phase := range workingPhases {
		if err := ctx.Err(); err != nil {
			o.state = StateFailed
			return o.report(started), err
		}

		round := newRound(len(o.rounds)+1, phase)
		o.execPhase(ctx, phase, round)

		o.updateConsensus(round)
		round.close(o.consensus.Snapshot())
		o.rounds = append(o.rounds, round)

		if done, state := o.checkTermination(); done {
			o.state = state
			break
		}
	}
	if o.state == StateRunning {
		o.state = StateCompleted
	}

	if err := ctx.Err(); err != nil {
		o.state = StateFailed
		return o.report(started), err
	}
	o.execPhase(ctx, PhaseConclusion, nil)

	rep := o.report(started)
	o.logger.Info("debate finished",
		zap.String("status", rep.Status),
		zap.Int("rounds", rep.RoundsCompleted),
		zap.Float64("consensus", rep.ConsensusScore),
	)
	return rep, nil
}

// checkTermination decides whether the debate is over. The round budget is
// unconditional and checked first; consensus can only end the debate once
// the round floor is reached.
func (o *Orchestrator) checkTermination() (bool, State) {
	rounds := len(o.rounds)
	avg := o.consensus.AverageConsensus()

	if rounds >= o.cfg.MaxRounds {
		if rounds >= o.cfg.MinRoundsBeforeConvergence && avg >= o.cfg.MinConsensusThreshold {
			return true, StateConverged
		}
		return true, StateMaxRounds
	}
	if rounds < o.cfg.MinRoundsBeforeConvergence {
		return false, StateRunning
	}
	if avg >= o.cfg.MinConsensusThreshold {
		return true, StateConverged
	}
	return false, StateRunning
}

// execPhase dispatches one phase through its handler, with tracing and
// phase bookkeeping. The round is nil for initialization and conclusion.
func (o *Orchestrator) execPhase(ctx context.Context, phase Phase, round *Round) {
	ctx, span := o.tracer.Start(ctx, "debate.phase",
		trace.WithAttributes(attribute.String("debate.phase", string(phase))))
	defer span.End()

	o.markPhase(phase)
	if o.phaseCounter != nil {
		o.phaseCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("phase", string(phase))))
	}
	o.logger.Debug("entering phase", zap.String("phase", string(phase)))
	o.handlers[phase](ctx, round)
}

// markPhase records a phase name the first time it is entered.
func (o *Orchestrator) markPhase(phase Phase) {
	for _, p := range o.phasesSeen {
		if p == phase {
			return
		}
	}
	o.phasesSeen = append(o.phasesSeen, phase)
}

func (o *Orchestrator) runInitialization(_ context.Context, _ *Round) {
	msg := bus.NewMessage("orchestrator", bus.TypeMeta,
		fmt.Sprintf("Research debate opened.\nTopic: %s\nGoal: %s", o.topic, o.goal))
	msg.Priority = bus.PriorityHigh
	if err := o.bus.Publish(msg); err != nil {
		o.logger.Warn("failed to announce debate", zap.Error(err))
	}
}

func (o *Orchestrator) runExploration(ctx context.Context, round *Round) {
	review := o.runStep(ctx, round, agent.RoleEvidence, agent.StepLiteratureReview, nil)

	paradigm := o.topic
	if review != nil {
		if sota, ok := structuredString(review, "state_of_the_art"); ok && sota != "" {
			paradigm = sota
		}
		o.recordLiterature(review)
	}
	o.runStep(ctx, round, agent.RoleVisionary, agent.StepBreakthrough,
		map[string]string{"current_paradigm": paradigm})
}

func (o *Orchestrator) runProposal(ctx context.Context, round *Round) {
	o.runStep(ctx, round, agent.RoleVisionary, agent.StepIdeation, nil)
	o.runStep(ctx, round, agent.RoleArchitect, agent.StepArchitecture, nil)
}

// runCritique has the critic evaluate the most recent proposals, newest
// last, up to two per round.
func (o *Orchestrator) runCritique(ctx context.Context, round *Round) {
	targets := o.proposals
	if len(targets) > 2 {
		targets = targets[len(targets)-2:]
	}
	for _, p := range targets {
		o.runStep(ctx, round, agent.RoleCritic, agent.StepCritique, map[string]string{
			"target_proposal": p.Content,
			"target_author":   p.Author,
		})
	}
}

// runSynthesis only asks for a synthesis once at least two proposals exist;
// a single proposal has nothing to unify.
func (o *Orchestrator) runSynthesis(ctx context.Context, round *Round) {
	if len(o.proposals) >= 2 {
		o.runStep(ctx, round, agent.RoleSynthesizer, agent.StepSynthesis, nil)
	}
	if design := o.currentDesign(); design != "" {
		o.runStep(ctx, round, agent.RoleArchitect, agent.StepRefinement,
			map[string]string{"current_design": design})
	}
}

func (o *Orchestrator) runVerification(ctx context.Context, round *Round) {
	subject := o.currentDesign()
	if subject == "" {
		return
	}

	exp := o.runStep(ctx, round, agent.RoleExperimentalist, agent.StepExperimentDesign,
		map[string]string{"hypothesis": subject})
	if exp != nil && o.shared != nil {
		o.shared.AddExperimentResult("experiment_round_"+fmt.Sprint(round.Number),
			map[string]any{"design": exp.Content}, "designed, not yet executed")
	}

	o.runStep(ctx, round, agent.RoleCritic, agent.StepStressTest,
		map[string]string{"target_proposal": subject})
	o.runStep(ctx, round, agent.RoleExperimentalist, agent.StepBenchmark,
		map[string]string{"approach": subject})
}

// runConvergence surfaces the open disagreements and captures the final
// theory: the synthesizer's verdict becomes the conclusion here, so the
// conclusion phase itself only needs its fallback.
func (o *Orchestrator) runConvergence(ctx context.Context, round *Round) {
	if disagreements := o.consensus.KeyDisagreements(0.5); len(disagreements) > 0 {
		o.logger.Info("open disagreements",
			zap.Strings("pairs", disagreements),
			zap.Float64("average", o.consensus.AverageConsensus()),
		)
	}

	verdict := o.runStep(ctx, round, agent.RoleSynthesizer, agent.StepFinalTheory, nil)
	if verdict != nil && o.shared != nil {
		if statement, ok := structuredString(verdict, "statement"); ok && statement != "" {
			if _, err := o.shared.AddFact(statement, verdict.Sender, verdict.Confidence); err != nil {
				o.logger.Warn("failed to record final theory", zap.Error(err))
			}
		}
	}
}

// runConclusion fills the conclusion when the convergence phase never
// captured a verdict (early termination, or a failed final-theory turn):
// the last synthesis stands in, or nothing at all.
func (o *Orchestrator) runConclusion(_ context.Context, _ *Round) {
	if o.conclusion == "" && len(o.syntheses) > 0 {
		o.conclusion = o.syntheses[len(o.syntheses)-1].Content
	}
}

// runStep asks the agent holding a role to act, and collects its message.
// A failed turn is logged and treated as an absent contribution.
func (o *Orchestrator) runStep(ctx context.Context, round *Round, role agent.Role, step string, extra map[string]string) *bus.Message {
	ag := o.byRole[role]
	turn := agent.TurnContext{
		Phase:     step,
		Topic:     o.topic,
		Goal:      o.goal,
		Proposals: artifactContents(o.proposals),
		Critiques: artifactContents(o.critiques),
		Syntheses: artifactContents(o.syntheses),
		Extra:     extra,
	}

	msg, err := ag.Act(ctx, turn)
	if err != nil {
		o.logger.Warn("agent turn failed",
			zap.String("agent", ag.Name()),
			zap.String("step", step),
			zap.Error(err),
		)
		return nil
	}
	if msg == nil {
		return nil
	}

	round.Messages = append(round.Messages, msg)
	if o.msgCounter != nil {
		o.msgCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("type", string(msg.Type))))
	}
	o.collect(msg, round.Phase)
	return msg
}

// collect classifies a contribution into the artifact lists by its message
// type. A verdict becomes the conclusion directly and joins no list.
func (o *Orchestrator) collect(msg *bus.Message, phase Phase) {
	art := Artifact{
		Content:   msg.Content,
		Author:    msg.Sender,
		Phase:     phase,
		Timestamp: msg.Timestamp,
	}
	switch msg.Type {
	case bus.TypeProposal:
		o.proposals = append(o.proposals, art)
	case bus.TypeCritique:
		o.critiques = append(o.critiques, art)
	case bus.TypeSynthesis:
		o.syntheses = append(o.syntheses, art)
	case bus.TypeVerdict:
		o.conclusion = msg.Content
	}
}

// updateConsensus derives pairwise agreement from the confidences the round's
// speakers reported. Two agents both confident in their latest contributions
// count as closer to agreement than a confident and a doubtful one.
func (o *Orchestrator) updateConsensus(round *Round) {
	latest := make(map[string]float64)
	order := make([]string, 0, len(round.Messages))
	for _, m := range round.Messages {
		if _, seen := latest[m.Sender]; !seen {
			order = append(order, m.Sender)
		}
		latest[m.Sender] = m.Confidence
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := order[i], order[j]
			o.consensus.UpdateAgreement(a, b, (latest[a]+latest[b])/2)
		}
	}
}

// recordLiterature files a literature review's findings and papers into the
// shared knowledge base.
func (o *Orchestrator) recordLiterature(msg *bus.Message) {
	if o.shared == nil {
		return
	}
	structured, ok := msg.Metadata["structured"].(map[string]any)
	if !ok {
		return
	}
	if findings, ok := structured["key_findings"].([]any); ok {
		for _, f := range findings {
			s, ok := f.(string)
			if !ok || s == "" {
				continue
			}
			if _, err := o.shared.AddFact(s, msg.Sender, msg.Confidence); err != nil {
				o.logger.Warn("failed to record finding", zap.Error(err))
			}
		}
	}
	if papers, ok := structured["relevant_papers"].([]any); ok {
		for _, p := range papers {
			if title, ok := p.(string); ok && title != "" {
				o.shared.AddPaper(title, nil, "", "", nil)
			}
		}
	}
}

// currentDesign is the subject for refinement and verification: the latest
// synthesis when one exists, else the latest proposal.
func (o *Orchestrator) currentDesign() string {
	if n := len(o.syntheses); n > 0 {
		return o.syntheses[n-1].Content
	}
	if n := len(o.proposals); n > 0 {
		return o.proposals[n-1].Content
	}
	return ""
}

func structuredString(msg *bus.Message, field string) (string, bool) {
	structured, ok := msg.Metadata["structured"].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := structured[field].(string)
	return s, ok
}

func artifactContents(arts []Artifact) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.Content
	}
	return out
}
