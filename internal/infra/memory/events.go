package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one published message.
type Event struct {
	Queue string
	Body  []byte
}

// EventRecorder keeps published events in memory and logs them. It stands in for the broker
// when none is configured.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(_ context.Context, queue string, body []byte) error {
	r.mu.Lock()
	r.events = append(r.events, Event{Queue: queue, Body: append([]byte(nil), body...)})
	r.mu.Unlock()
	log.Debug().Str("queue", queue).RawJSON("body", body).Msg("event recorded")
	return nil
}

// Events returns a copy of everything published so far.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
