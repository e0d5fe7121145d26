// Package notify distributes user-facing notifications from the
// workflow engine: generation finished or failed, an edge was rejected
// or auto-removed, a save did not go through. The render layer
// subscribes; the engine only publishes.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Level indicates how a notification should be presented.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one user-facing message.
type Notification struct {
	// ID uniquely identifies the notification.
	ID string `json:"id"`

	// Level selects the presentation style.
	Level Level `json:"level"`

	// NodeID is the node the notification concerns, if any.
	NodeID string `json:"node_id,omitempty"`

	// Message is the user-facing text.
	Message string `json:"message"`

	// Time is when the notification was raised.
	Time time.Time `json:"time"`
}

// New creates a notification.
func New(level Level, nodeID, message string) Notification {
	return Notification{
		ID:      "ntf-" + uuid.New().String()[:8],
		Level:   level,
		NodeID:  nodeID,
		Message: message,
		Time:    time.Now(),
	}
}

// Bus fans notifications out to subscribers. Delivery is non-blocking:
// a subscriber that stops draining its channel loses notifications
// rather than stalling the engine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int64]chan Notification
	nextID atomic.Int64
	closed atomic.Bool
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]chan Notification)}
}

// Subscribe registers a subscriber with the given channel buffer size
// and returns its channel plus an unsubscribe function. Unsubscribing
// closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	ch := make(chan Notification, buffer)
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a notification to every subscriber, dropping it for
// subscribers whose buffers are full.
func (b *Bus) Publish(n Notification) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
