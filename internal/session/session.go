// Package session wires a full research run: the bus, the shared knowledge
// base, the agent roster, the orchestrator and the persistence layer.
//
// A session is single-use. It loads any prior memory checkpoints before the
// debate, runs the debate to completion, then checkpoints memory and writes
// the report to the output directory.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/agent"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/bus"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/config"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/debate"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

// ErrNilGenerator is returned when no text generator is supplied.
var ErrNilGenerator = errors.New("generator is required")

// Session is one configured research run.
type Session struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger

	bus    *bus.Bus
	shared *memory.SharedKnowledgeBase
	agents []*agent.ResearchAgent
	orch   *debate.Orchestrator
	store  *memory.FileStore
}

// New assembles a session from configuration and a generator. The generator
// is injected so tests and alternative providers can supply their own.
func New(cfg *config.Config, gen llm.Generator, logger *zap.Logger) (*Session, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := memory.NewFileStore(filepath.Join(cfg.Output.Dir, "memory"))
	if err != nil {
		return nil, err
	}

	b := bus.New(logger)
	shared := memory.NewSharedKnowledgeBase(logger)
	client, err := llm.NewClient(gen, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	agents := make([]*agent.ResearchAgent, 0, len(cfg.Agents))
	roster := make([]agent.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		a, err := agent.New(ac, b, shared, client, cfg.Memory, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create agent %q: %w", ac.Name, err)
		}
		agents = append(agents, a)
		roster = append(roster, a)
	}

	orch, err := debate.New(cfg.Debate, roster, b, shared, logger)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:     uuid.New().String()[:8],
		cfg:    cfg,
		logger: logger.Named("session"),
		bus:    b,
		shared: shared,
		agents: agents,
		orch:   orch,
		store:  store,
	}, nil
}

// ID returns the short session id.
func (s *Session) ID() string { return s.id }

// Bus exposes the message bus, mainly for inspection after a run.
func (s *Session) Bus() *bus.Bus { return s.bus }

// Shared exposes the shared knowledge base.
func (s *Session) Shared() *memory.SharedKnowledgeBase { return s.shared }

// Run executes the debate on a topic and persists the results. The report
// is returned even when checkpointing fails; persistence errors are logged,
// not fatal.
func (s *Session) Run(ctx context.Context, topic, goal string) (*debate.Report, error) {
	s.logger.Info("session starting",
		zap.String("session_id", s.id),
		zap.String("topic", topic),
	)

	s.restore(ctx)

	report, err := s.orch.Run(ctx, topic, goal)
	if report != nil {
		s.checkpoint(ctx)
		if werr := s.writeReport(report); werr != nil {
			s.logger.Warn("failed to write report", zap.Error(werr))
		}
	}
	return report, err
}

// restore loads prior memory checkpoints. Missing snapshots are normal for
// a fresh output directory.
func (s *Session) restore(ctx context.Context) {
	if err := s.shared.Load(ctx, s.store); err != nil {
		s.logger.Warn("failed to load shared knowledge", zap.Error(err))
	}
	for _, a := range s.agents {
		if err := a.Memory().Load(ctx, s.store); err != nil {
			s.logger.Warn("failed to load agent memory",
				zap.String("agent", a.Name()), zap.Error(err))
		}
	}
}

// checkpoint saves all memories after the run.
func (s *Session) checkpoint(ctx context.Context) {
	if err := s.shared.Save(ctx, s.store); err != nil {
		s.logger.Warn("failed to save shared knowledge", zap.Error(err))
	}
	for _, a := range s.agents {
		if err := a.Memory().Save(ctx, s.store); err != nil {
			s.logger.Warn("failed to save agent memory",
				zap.String("agent", a.Name()), zap.Error(err))
		}
	}
}

// writeReport stores the report as JSON under the output directory, keyed
// by session id.
func (s *Session) writeReport(report *debate.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(s.cfg.Output.Dir, fmt.Sprintf("report_%s.json", s.id))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	s.logger.Info("report written", zap.String("path", path))
	return nil
}
