package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config tunes a per-agent memory.
type Config struct {
	// MaxShortTerm caps the short-term buffer length (default: 100).
	MaxShortTerm int `koanf:"max_short_term"`

	// ImportanceThreshold is the minimum importance for long-term
	// promotion (default: 0.7).
	ImportanceThreshold float64 `koanf:"importance_threshold"`
}

// DefaultConfig returns the memory defaults.
func DefaultConfig() Config {
	return Config{
		MaxShortTerm:        100,
		ImportanceThreshold: 0.7,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.MaxShortTerm == 0 {
		c.MaxShortTerm = defaults.MaxShortTerm
	}
	if c.ImportanceThreshold == 0 {
		c.ImportanceThreshold = defaults.ImportanceThreshold
	}
}

// Memory is the per-agent store. It is mutated only from the owning agent's
// call path, so no locking is needed.
//
// Entries live in an ordered short-term buffer capped at MaxShortTerm.
// Entries whose importance meets the threshold are additionally promoted to
// the long-term keyed store, immediately on Add and again on eviction, so
// high-importance information survives capacity pressure while
// low-importance information is bounded and eventually discarded.
type Memory struct {
	agentID string
	cfg     Config
	logger  *zap.Logger

	shortTerm []*Entry
	longTerm  map[string]*Entry
	working   map[string]any

	nextSeq int
}

// New creates a memory for the given agent.
func New(agentID string, cfg Config, logger *zap.Logger) (*Memory, error) {
	if agentID == "" {
		return nil, ErrEmptyAgentID
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Memory{
		agentID:  agentID,
		cfg:      cfg,
		logger:   logger,
		longTerm: make(map[string]*Entry),
		working:  make(map[string]any),
	}, nil
}

// AgentID returns the owning agent's id.
func (m *Memory) AgentID() string { return m.agentID }

// Add records a new entry and returns it.
func (m *Memory) Add(content, source string, importance float64, tags []string) (*Entry, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if importance < 0 || importance > 1 {
		return nil, ErrInvalidImportance
	}

	now := time.Now()
	entry := &Entry{
		ID:         entryID(content, now),
		Content:    content,
		Source:     source,
		Timestamp:  now,
		Importance: importance,
		Tags:       tags,
		seq:        m.nextSeq,
	}
	m.nextSeq++

	m.shortTerm = append(m.shortTerm, entry)

	if importance >= m.cfg.ImportanceThreshold {
		m.longTerm[entry.ID] = entry
	}

	m.evictExcess()
	return entry, nil
}

// evictExcess trims the short-term buffer to capacity. Evicted entries that
// meet the importance threshold are consolidated into long-term first.
func (m *Memory) evictExcess() {
	if len(m.shortTerm) <= m.cfg.MaxShortTerm {
		return
	}
	excess := m.shortTerm[:len(m.shortTerm)-m.cfg.MaxShortTerm]
	for _, e := range excess {
		if e.Importance >= m.cfg.ImportanceThreshold {
			m.longTerm[e.ID] = e
		}
	}
	m.shortTerm = m.shortTerm[len(m.shortTerm)-m.cfg.MaxShortTerm:]
}

// Search scans the union of short-term and long-term entries, discards any
// below minImportance or missing a required tag, scores the rest by
// token-overlap ratio against the query times importance, and returns the
// top limit results by descending score. Ties keep insertion order.
func (m *Memory) Search(query string, tags []string, minImportance float64, limit int) []*Entry {
	seen := make(map[string]bool, len(m.shortTerm))
	candidates := make([]*Entry, 0, len(m.shortTerm)+len(m.longTerm))
	for _, e := range m.shortTerm {
		candidates = append(candidates, e)
		seen[e.ID] = true
	}
	for _, e := range m.longTerm {
		if !seen[e.ID] {
			candidates = append(candidates, e)
		}
	}

	type scored struct {
		entry *Entry
		score float64
	}
	var results []scored

	for _, e := range candidates {
		if e.Importance < minImportance {
			continue
		}
		if !hasAllTags(e, tags) {
			continue
		}
		score := relevance(query, e)
		if score > 0 {
			results = append(results, scored{entry: e, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].entry.seq < results[j].entry.seq
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]*Entry, len(results))
	for i, r := range results {
		out[i] = r.entry
	}
	return out
}

// Context formats the top depth search results for a topic as a single text
// block suitable for prompting.
func (m *Memory) Context(topic string, depth int) string {
	entries := m.Search(topic, nil, 0, depth*5)
	if len(entries) > depth {
		entries = entries[:depth]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("[%s] %s", e.Source, e.Content))
	}
	return strings.Join(parts, "\n")
}

// SetWorking stores a value in working memory.
func (m *Memory) SetWorking(key string, value any) {
	m.working[key] = value
}

// Working retrieves a value from working memory.
func (m *Memory) Working(key string) (any, bool) {
	v, ok := m.working[key]
	return v, ok
}

// ShortTermLen returns the current short-term buffer length.
func (m *Memory) ShortTermLen() int { return len(m.shortTerm) }

// LongTermLen returns the number of long-term entries.
func (m *Memory) LongTermLen() int { return len(m.longTerm) }

// LongTerm returns the long-term entry with the given id.
func (m *Memory) LongTerm(id string) (*Entry, bool) {
	e, ok := m.longTerm[id]
	return e, ok
}

// Save persists the memory through the given store.
func (m *Memory) Save(ctx context.Context, store Store) error {
	if store == nil {
		return ErrNilStore
	}

	snap := &Snapshot{
		AgentID:   m.agentID,
		ShortTerm: m.shortTerm,
		LongTerm:  make([]*Entry, 0, len(m.longTerm)),
		SavedAt:   time.Now(),
	}
	for _, e := range m.longTerm {
		snap.LongTerm = append(snap.LongTerm, e)
	}
	sort.Slice(snap.LongTerm, func(i, j int) bool {
		return snap.LongTerm[i].seq < snap.LongTerm[j].seq
	})

	if err := store.SaveAgent(ctx, m.agentID, snap); err != nil {
		return fmt.Errorf("failed to save memory for %s: %w", m.agentID, err)
	}
	m.logger.Debug("saved agent memory",
		zap.String("agent_id", m.agentID),
		zap.Int("short_term", len(snap.ShortTerm)),
		zap.Int("long_term", len(snap.LongTerm)),
	)
	return nil
}

// Load replaces the memory contents from the given store. A missing
// snapshot leaves the memory empty and is not an error.
func (m *Memory) Load(ctx context.Context, store Store) error {
	if store == nil {
		return ErrNilStore
	}

	snap, err := store.LoadAgent(ctx, m.agentID)
	if err != nil {
		return fmt.Errorf("failed to load memory for %s: %w", m.agentID, err)
	}
	if snap == nil {
		return nil
	}

	m.shortTerm = nil
	m.longTerm = make(map[string]*Entry)
	m.nextSeq = 0
	for _, e := range snap.ShortTerm {
		e.seq = m.nextSeq
		m.nextSeq++
		m.shortTerm = append(m.shortTerm, e)
	}
	for _, e := range snap.LongTerm {
		if _, ok := m.longTerm[e.ID]; !ok {
			e.seq = m.nextSeq
			m.nextSeq++
		}
		m.longTerm[e.ID] = e
	}
	return nil
}

// relevance scores an entry against a query: the fraction of query tokens
// present in the content, weighted by importance. Zero when nothing overlaps.
func relevance(query string, e *Entry) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := make(map[string]bool)
	for _, t := range tokenize(e.Content) {
		contentTokens[t] = true
	}

	overlap := 0
	for _, t := range queryTokens {
		if contentTokens[t] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	return float64(overlap) / float64(len(queryTokens)) * e.Importance
}

// tokenize lower-cases and splits on whitespace, deduplicating tokens.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func hasAllTags(e *Entry, tags []string) bool {
	for _, tag := range tags {
		if !e.hasTag(tag) {
			return false
		}
	}
	return true
}
