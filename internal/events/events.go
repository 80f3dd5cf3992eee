package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventEntityCreated = "entity_created"
	EventEntityUpdated = "entity_updated"
	EventEntityDeleted = "entity_deleted"
)

// EntityTypes lists every event the portal publishes after a mutation.
var EntityTypes = []string{EventEntityCreated, EventEntityUpdated, EventEntityDeleted}

// EntityEventPayload describes one successful mutation on the backend.
type EntityEventPayload struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id,omitempty"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
}

// Action is the short verb of an entity event type ("created", "updated", "deleted").
func Action(eventType string) string {
	switch eventType {
	case EventEntityCreated:
		return "created"
	case EventEntityUpdated:
		return "updated"
	case EventEntityDeleted:
		return "deleted"
	default:
		return eventType
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every subscriber synchronously. A failing handler does not stop
// the others; their errors are joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
