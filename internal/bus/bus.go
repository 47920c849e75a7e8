package bus

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Common errors for bus operations.
var (
	ErrEmptyAgentID = errors.New("agent id cannot be empty")
	ErrNilCallback  = errors.New("callback cannot be nil")
	ErrNilMessage   = errors.New("message cannot be nil")
)

// Callback receives a delivered message. It runs inline on the publisher's
// call path; a panic inside it is recovered and logged by the bus.
type Callback func(*Message)

type subscription struct {
	agentID  string
	callback Callback
}

// Bus is the central broker for agent communication.
//
// The mutex only guards the registry and log against misuse; the
// orchestration model itself never publishes from two goroutines at once.
type Bus struct {
	mu sync.Mutex

	// subs preserves registration order, which defines delivery order
	// within a single publish.
	subs     []subscription
	messages []*Message
	threads  map[string][]*Message

	logger *zap.Logger
}

// New creates an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		threads: make(map[string][]*Message),
		logger:  logger,
	}
}

// Subscribe registers a callback for an agent. An agent may register more
// than one callback; each is invoked independently.
func (b *Bus) Subscribe(agentID string, cb Callback) error {
	if agentID == "" {
		return ErrEmptyAgentID
	}
	if cb == nil {
		return ErrNilCallback
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{agentID: agentID, callback: cb})
	return nil
}

// Publish appends the message to the global log and its thread, then
// dispatches it. A directed message (Recipient set) reaches only that
// agent's callbacks; a broadcast reaches every registered callback, in
// registration order. Dispatch is at-most-once and never retried.
func (b *Bus) Publish(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	b.mu.Lock()
	b.messages = append(b.messages, msg)

	threadID := msg.ThreadID
	if threadID == "" {
		threadID = msg.ID
	}
	b.threads[threadID] = append(b.threads[threadID], msg)

	// Snapshot under lock; deliver outside it so callbacks can publish.
	targets := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if msg.Recipient == "" || msg.Recipient == sub.agentID {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		b.deliver(sub, msg)
	}
	return nil
}

// deliver invokes one callback with panic isolation. A failing subscriber
// must never block delivery to the rest, or the publish call itself.
func (b *Bus) deliver(sub subscription, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("subscriber callback failed",
				zap.String("agent_id", sub.agentID),
				zap.String("message_id", msg.ID),
				zap.Any("panic", r),
			)
		}
	}()
	sub.callback(msg)
}

// Thread returns all messages in a thread, in publish order.
func (b *Bus) Thread(threadID string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.threads[threadID]
	out := make([]*Message, len(msgs))
	copy(out, msgs)
	return out
}

// MessagesFor returns messages visible to an agent: broadcasts plus messages
// addressed to it. If msgType is non-empty, only messages of that type are
// returned.
func (b *Bus) MessagesFor(agentID string, msgType MessageType) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*Message
	for _, m := range b.messages {
		if m.Recipient != "" && m.Recipient != agentID {
			continue
		}
		if msgType != "" && m.Type != msgType {
			continue
		}
		out = append(out, m)
	}
	return out
}

// History returns up to limit most recent messages in publish order.
func (b *Bus) History(limit int) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := 0
	if limit > 0 && len(b.messages) > limit {
		start = len(b.messages) - limit
	}
	out := make([]*Message, len(b.messages)-start)
	copy(out, b.messages[start:])
	return out
}

// Clear drops the message log and thread index. Subscriptions survive.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
	b.threads = make(map[string][]*Message)
}
