// Package events provides the run event log: an append-only record of what
// the engine did, read by pollers such as the WebSocket hub.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a simulation event.
type EventType string

const (
	EventTypeRunStarted         EventType = "RUN_STARTED"
	EventTypeGenerationAdvanced EventType = "GENERATION_ADVANCED"
	EventTypeRunPaused          EventType = "RUN_PAUSED"
	EventTypeRunResumed         EventType = "RUN_RESUMED"
	EventTypeRunReseeded        EventType = "RUN_RESEEDED"
	EventTypeRunStopped         EventType = "RUN_STOPPED"
)

// IsLifecycle reports whether t marks a change to the run itself rather
// than an ordinary generation.
func (t EventType) IsLifecycle() bool {
	return t != EventTypeGenerationAdvanced
}

// SimEvent represents an immutable record of something the engine did.
type SimEvent struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	RunID      string      `json:"run_id"`
	Generation int64       `json:"generation"`
	Payload    interface{} `json:"payload,omitempty"`
}

// EventPersister defines how a lifecycle event is durably stored.
type EventPersister interface {
	Append(event SimEvent) error
}

// DefaultCapacity bounds the log when no capacity is given.
const DefaultCapacity = 4096

// EventLog is the in-memory append-only log of simulation events.
// Only the most recent capacity events are retained; offsets keep counting
// across evictions so cursors stay valid.
type EventLog struct {
	mu        sync.RWMutex
	events    []SimEvent
	capacity  int
	dropped   int // events evicted from the front
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(capacity int, persister EventPersister) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventLog{
		events:    make([]SimEvent, 0, min(capacity, 256)),
		capacity:  capacity,
		persister: persister,
	}
}

// Append adds a new event to the log, filling in ID and Timestamp if unset.
// Lifecycle events are written through to the persister.
func (el *EventLog) Append(event SimEvent) SimEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if over := len(el.events) - el.capacity; over > 0 {
		el.events = append(el.events[:0:0], el.events[over:]...)
		el.dropped += over
	}
	el.mu.Unlock()

	if el.persister != nil && event.Type.IsLifecycle() {
		_ = el.persister.Append(event)
	}
	return event
}

// Len is the total number of events ever appended, including evicted ones.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.dropped + len(el.events)
}

// Since returns the events appended at or after offset together with the
// offset to resume from. If offset has been evicted, the oldest retained
// events are returned.
func (el *EventLog) Since(offset int) ([]SimEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()

	next := el.dropped + len(el.events)
	start := offset - el.dropped
	if start < 0 {
		start = 0
	}
	if start >= len(el.events) {
		return nil, next
	}
	out := make([]SimEvent, len(el.events)-start)
	copy(out, el.events[start:])
	return out, next
}

// GetByType returns the retained events of one type.
func (el *EventLog) GetByType(t EventType) []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []SimEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByRun returns the retained events of one run.
func (el *EventLog) GetByRun(runID string) []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []SimEvent
	for _, e := range el.events {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of every retained event.
func (el *EventLog) Replay() []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]SimEvent, len(el.events))
	copy(out, el.events)
	return out
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
