package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fact is a verified piece of knowledge in the shared base.
type Fact struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	AddedAt    time.Time `json:"added_at"`
	VerifiedBy []string  `json:"verified_by"`
}

// Paper is a research paper reference.
type Paper struct {
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Abstract    string    `json:"abstract"`
	URL         string    `json:"url,omitempty"`
	KeyFindings []string  `json:"key_findings,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// CodeSnippet is a named code fragment shared between agents.
type CodeSnippet struct {
	Code     string    `json:"code"`
	Language string    `json:"language"`
	AddedAt  time.Time `json:"added_at"`
}

// ExperimentResult records the outcome of an experiment.
type ExperimentResult struct {
	Name       string         `json:"name"`
	Results    map[string]any `json:"results"`
	Conclusion string         `json:"conclusion,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SharedKnowledgeBase holds knowledge visible to all agents in a session.
//
// It is mutated by different agents across different phases but never
// simultaneously; the orchestration model never runs two agent turns in
// parallel. The base grows unbounded for the session lifetime: no eviction
// or consolidation applies here.
type SharedKnowledgeBase struct {
	facts       map[string]*Fact
	papers      []*Paper
	snippets    map[string]*CodeSnippet
	experiments []*ExperimentResult

	logger *zap.Logger
}

// NewSharedKnowledgeBase creates an empty shared knowledge base.
func NewSharedKnowledgeBase(logger *zap.Logger) *SharedKnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SharedKnowledgeBase{
		facts:    make(map[string]*Fact),
		snippets: make(map[string]*CodeSnippet),
		logger:   logger,
	}
}

// AddFact records a verified fact. The id is derived from the content, so
// re-adding the same fact overwrites rather than duplicates.
func (kb *SharedKnowledgeBase) AddFact(content, source string, confidence float64) (*Fact, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	now := time.Now()
	fact := &Fact{
		ID:         entryID(content, time.Time{}),
		Content:    content,
		Source:     source,
		Confidence: confidence,
		AddedAt:    now,
		VerifiedBy: []string{},
	}
	kb.facts[fact.ID] = fact
	return fact, nil
}

// VerifyFact appends a verifier to a fact's verified-by list.
func (kb *SharedKnowledgeBase) VerifyFact(id, verifier string) bool {
	fact, ok := kb.facts[id]
	if !ok {
		return false
	}
	fact.VerifiedBy = append(fact.VerifiedBy, verifier)
	return true
}

// AddPaper records a research paper reference.
func (kb *SharedKnowledgeBase) AddPaper(title string, authors []string, abstract, url string, keyFindings []string) {
	kb.papers = append(kb.papers, &Paper{
		Title:       title,
		Authors:     authors,
		Abstract:    abstract,
		URL:         url,
		KeyFindings: keyFindings,
		AddedAt:     time.Now(),
	})
}

// AddCode stores a named code snippet.
func (kb *SharedKnowledgeBase) AddCode(name, code, language string) {
	kb.snippets[name] = &CodeSnippet{
		Code:     code,
		Language: language,
		AddedAt:  time.Now(),
	}
}

// AddExperimentResult records an experiment outcome.
func (kb *SharedKnowledgeBase) AddExperimentResult(name string, results map[string]any, conclusion string) {
	kb.experiments = append(kb.experiments, &ExperimentResult{
		Name:       name,
		Results:    results,
		Conclusion: conclusion,
		Timestamp:  time.Now(),
	})
}

// SearchFacts returns all facts whose content contains the query,
// case-insensitively.
func (kb *SharedKnowledgeBase) SearchFacts(query string) []*Fact {
	q := strings.ToLower(query)
	var out []*Fact
	for _, fact := range kb.facts {
		if strings.Contains(strings.ToLower(fact.Content), q) {
			out = append(out, fact)
		}
	}
	return out
}

// Papers returns all recorded papers.
func (kb *SharedKnowledgeBase) Papers() []*Paper { return kb.papers }

// Code returns the snippet with the given name.
func (kb *SharedKnowledgeBase) Code(name string) (*CodeSnippet, bool) {
	s, ok := kb.snippets[name]
	return s, ok
}

// Experiments returns all recorded experiment results.
func (kb *SharedKnowledgeBase) Experiments() []*ExperimentResult { return kb.experiments }

// FactCount returns the number of stored facts.
func (kb *SharedKnowledgeBase) FactCount() int { return len(kb.facts) }

// Save persists the shared base through the given store.
func (kb *SharedKnowledgeBase) Save(ctx context.Context, store Store) error {
	if store == nil {
		return ErrNilStore
	}

	snap := &SharedSnapshot{
		Facts:       make([]*Fact, 0, len(kb.facts)),
		Papers:      kb.papers,
		Snippets:    make(map[string]*CodeSnippet, len(kb.snippets)),
		Experiments: kb.experiments,
		SavedAt:     time.Now(),
	}
	for _, f := range kb.facts {
		snap.Facts = append(snap.Facts, f)
	}
	for name, s := range kb.snippets {
		snap.Snippets[name] = s
	}

	if err := store.SaveShared(ctx, snap); err != nil {
		return fmt.Errorf("failed to save shared knowledge: %w", err)
	}
	kb.logger.Debug("saved shared knowledge base",
		zap.Int("facts", len(snap.Facts)),
		zap.Int("papers", len(snap.Papers)),
	)
	return nil
}

// Load replaces the shared base contents from the given store. A missing
// snapshot leaves the base empty and is not an error.
func (kb *SharedKnowledgeBase) Load(ctx context.Context, store Store) error {
	if store == nil {
		return ErrNilStore
	}

	snap, err := store.LoadShared(ctx)
	if err != nil {
		return fmt.Errorf("failed to load shared knowledge: %w", err)
	}
	if snap == nil {
		return nil
	}

	kb.facts = make(map[string]*Fact, len(snap.Facts))
	for _, f := range snap.Facts {
		kb.facts[f.ID] = f
	}
	kb.papers = snap.Papers
	kb.snippets = snap.Snippets
	if kb.snippets == nil {
		kb.snippets = make(map[string]*CodeSnippet)
	}
	kb.experiments = snap.Experiments
	return nil
}
