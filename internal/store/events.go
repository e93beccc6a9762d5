package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes successful-operation notifications from the
// error channel, so a host UI can render them without polling state.
type EventType string

const (
	EventImported EventType = "imported"
	EventExported EventType = "exported"
	EventError    EventType = "error"
)

// Event is a store notification broadcast to registered listeners.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	BookTitle   string    `json:"book_title,omitempty"`
	Annotations int       `json:"annotations,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// Listener receives store events. Notify is called synchronously from
// store operations and must not call back into the store.
type Listener interface {
	Notify(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(event Event)

func (f ListenerFunc) Notify(event Event) { f(event) }

// EventLog is a bounded in-memory log of recent events. Hosts subscribe
// it to the manager and poll Recent.
type EventLog struct {
	mu     sync.Mutex
	max    int
	events []Event
}

func NewEventLog(max int) *EventLog {
	if max <= 0 {
		max = 100
	}
	return &EventLog{max: max}
}

func (l *EventLog) Notify(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

// Recent returns a copy of the retained events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func newEvent(eventType EventType, title, detail string, annotations int) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		BookTitle:   title,
		Annotations: annotations,
		Detail:      detail,
		At:          time.Now(),
	}
}
