package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic identifies an independent change stream. Streams carry no ordering
// guarantee relative to each other: a student event may be observed before
// or after the class event it depends on.
type Topic string

const (
	TopicClasses  Topic = "classes"
	TopicStudents Topic = "students"
)

// Event describes one document-level change on a topic.
type Event struct {
	Topic Topic
	Kind  EventKind
	ID    string
	At    time.Time
}

// EventKind enumerates change types.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Broker fans change events out to per-topic subscribers. Publishing is
// fire-and-forget: writers never block, and events are dropped when a
// subscriber's buffer is full.
type Broker struct {
	bufferSize int
	logger     *zap.Logger

	mu     sync.RWMutex
	subs   map[Topic][]chan Event
	closed bool
}

// NewBroker constructs a broker with the given per-subscriber buffer size.
func NewBroker(bufferSize int, logger *zap.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		bufferSize: bufferSize,
		logger:     logger,
		subs:       make(map[Topic][]chan Event),
	}
}

// Subscribe registers a new subscriber channel for the topic.
func (b *Broker) Subscribe(topic Topic) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Publish delivers the event to every subscriber of its topic.
func (b *Broker) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs[event.Topic] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("change event dropped",
				zap.String("topic", string(event.Topic)),
				zap.String("kind", string(event.Kind)),
				zap.String("id", event.ID))
		}
	}
}

// Close terminates all subscriber channels. Publish becomes a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	b.subs = nil
}
