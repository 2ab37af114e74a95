// Package monitoring carries user-facing events out of the estimating core to
// logs, alert webhooks, or test recorders.
package monitoring

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind identifies what happened.
type EventKind string

const (
	EventAssemblyNotFound  EventKind = "assembly_not_found"
	EventInvalidQuantity   EventKind = "invalid_quantity"
	EventBidLocked         EventKind = "bid_locked"
	EventUnknownDifficulty EventKind = "unknown_difficulty"
	EventBidWon            EventKind = "bid_won"
	EventPriceUpdate       EventKind = "price_update"
)

// Event is a structured notice for an external logger or alerting service.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Context   string         `json:"context"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(kind EventKind, context, message string) Event {
	return Event{
		Kind:      kind,
		Context:   context,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Notifier receives events. Implementations must not block the caller.
type Notifier interface {
	Notify(ev Event)
}

// Nop discards events.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Event) {}

// LogNotifier writes events to the global zap logger at warn level.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ev Event) {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("context", ev.Context),
	}
	if len(ev.Details) > 0 {
		fields = append(fields, zap.Any("details", ev.Details))
	}
	zap.L().Warn(ev.Message, fields...)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in arrival order.
func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}
