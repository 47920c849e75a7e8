package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the persisted form of a per-agent memory.
type Snapshot struct {
	AgentID   string    `json:"agent_id"`
	ShortTerm []*Entry  `json:"short_term"`
	LongTerm  []*Entry  `json:"long_term"`
	SavedAt   time.Time `json:"saved_at"`
}

// SharedSnapshot is the persisted form of the shared knowledge base.
type SharedSnapshot struct {
	Facts       []*Fact                 `json:"facts"`
	Papers      []*Paper                `json:"papers"`
	Snippets    map[string]*CodeSnippet `json:"snippets"`
	Experiments []*ExperimentResult     `json:"experiments"`
	SavedAt     time.Time               `json:"saved_at"`
}

// Store is the pluggable persistence backend for the memory subsystem.
//
// Load methods return (nil, nil) when no snapshot exists; callers treat
// that as an empty memory, not a failure.
type Store interface {
	SaveAgent(ctx context.Context, agentID string, snap *Snapshot) error
	LoadAgent(ctx context.Context, agentID string) (*Snapshot, error)
	SaveShared(ctx context.Context, snap *SharedSnapshot) error
	LoadShared(ctx context.Context) (*SharedSnapshot, error)
}

// FileStore persists snapshots as JSON files under a base directory:
// agents/<agent_id>.json and shared.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory tree if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store directory cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(dir, "agents"), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) agentPath(agentID string) string {
	return filepath.Join(s.dir, "agents", agentID+".json")
}

func (s *FileStore) sharedPath() string {
	return filepath.Join(s.dir, "shared.json")
}

// SaveAgent writes an agent snapshot.
func (s *FileStore) SaveAgent(_ context.Context, agentID string, snap *Snapshot) error {
	if agentID == "" {
		return ErrEmptyAgentID
	}
	return writeJSON(s.agentPath(agentID), snap)
}

// LoadAgent reads an agent snapshot. Returns (nil, nil) if none exists.
func (s *FileStore) LoadAgent(_ context.Context, agentID string) (*Snapshot, error) {
	if agentID == "" {
		return nil, ErrEmptyAgentID
	}
	var snap Snapshot
	ok, err := readJSON(s.agentPath(agentID), &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// SaveShared writes the shared knowledge snapshot.
func (s *FileStore) SaveShared(_ context.Context, snap *SharedSnapshot) error {
	return writeJSON(s.sharedPath(), snap)
}

// LoadShared reads the shared knowledge snapshot. Returns (nil, nil) if
// none exists.
func (s *FileStore) LoadShared(_ context.Context) (*SharedSnapshot, error) {
	var snap SharedSnapshot
	ok, err := readJSON(s.sharedPath(), &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	// Write via temp file and rename so a crash never leaves a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}

// readJSON returns (false, nil) when the file does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return true, nil
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)
