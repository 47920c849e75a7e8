package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Common errors for memory operations.
var (
	ErrEmptyContent      = errors.New("memory content cannot be empty")
	ErrInvalidImportance = errors.New("importance must be between 0.0 and 1.0")
	ErrEmptyAgentID      = errors.New("agent id cannot be empty")
	ErrNilStore          = errors.New("store is required")
)

// Entry is a single memory record.
type Entry struct {
	// ID is derived deterministically from content and creation time.
	ID string `json:"id"`

	// Content is the remembered text.
	Content string `json:"content"`

	// Source tags where the entry came from (e.g. "thinking",
	// "message_from_Critic").
	Source string `json:"source"`

	// Timestamp is when the entry was created.
	Timestamp time.Time `json:"timestamp"`

	// Importance in [0,1] drives long-term promotion and search ranking.
	Importance float64 `json:"importance"`

	// Tags label the entry for filtered search.
	Tags []string `json:"tags,omitempty"`

	// RelatedIDs links associated entries.
	RelatedIDs []string `json:"related_ids,omitempty"`

	// Metadata carries free-form annotations.
	Metadata map[string]any `json:"metadata,omitempty"`

	// seq is the insertion sequence number, used to break ranking ties
	// in favor of earlier entries. Not persisted.
	seq int
}

// entryID derives a short deterministic id from content and creation time.
func entryID(content string, ts time.Time) string {
	sum := sha256.Sum256([]byte(content + ts.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

// hasTag reports whether the entry carries the given tag.
func (e *Entry) hasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
