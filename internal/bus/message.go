package bus

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies what a message contributes to the debate.
type MessageType string

const (
	TypeProposal  MessageType = "proposal"
	TypeCritique  MessageType = "critique"
	TypeSupport   MessageType = "support"
	TypeQuestion  MessageType = "question"
	TypeEvidence  MessageType = "evidence"
	TypeSynthesis MessageType = "synthesis"
	TypeCounter   MessageType = "counter"
	TypeVerdict   MessageType = "verdict"
	TypeMeta      MessageType = "meta"
	TypeArtifact  MessageType = "artifact"
	TypeResult    MessageType = "result"
)

// Priority orders messages by urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Message is a single unit of agent communication.
//
// An empty Recipient means broadcast. ThreadID is transitively inherited:
// every message in a reply chain carries the root message's thread id.
type Message struct {
	// ID is the unique message identifier (UUID).
	ID string `json:"id"`

	// Sender is the publishing agent's id.
	Sender string `json:"sender"`

	// Recipient is the target agent id, or "" for broadcast.
	Recipient string `json:"recipient,omitempty"`

	// Type classifies the message content.
	Type MessageType `json:"type"`

	// Content is the message body.
	Content string `json:"content"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`

	// Priority is the sender's urgency assessment.
	Priority Priority `json:"priority"`

	// ParentID links a reply to the message it answers.
	ParentID string `json:"parent_id,omitempty"`

	// ThreadID groups a reply chain under its root message.
	ThreadID string `json:"thread_id,omitempty"`

	// Metadata carries free-form structured payloads (e.g. the decoded
	// schema result behind Content).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Confidence is the sender's confidence in this message, in [0,1].
	Confidence float64 `json:"confidence"`

	// Citations lists supporting sources.
	Citations []string `json:"citations,omitempty"`
}

// NewMessage creates a broadcast message with a fresh id and normal priority.
func NewMessage(sender string, msgType MessageType, content string) *Message {
	return &Message{
		ID:         uuid.New().String(),
		Sender:     sender,
		Type:       msgType,
		Content:    content,
		Timestamp:  time.Now(),
		Priority:   PriorityNormal,
		Confidence: 1.0,
	}
}

// Reply creates a response to this message from the given sender.
//
// The reply joins the parent's thread: it takes the parent's thread id when
// set, otherwise the parent's own id becomes the thread root.
func (m *Message) Reply(sender string, msgType MessageType, content string) *Message {
	reply := NewMessage(sender, msgType, content)
	reply.ParentID = m.ID
	if m.ThreadID != "" {
		reply.ThreadID = m.ThreadID
	} else {
		reply.ThreadID = m.ID
	}
	return reply
}
