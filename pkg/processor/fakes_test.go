package processor

import (
	"context"
	"sync"

	"imoperator/pkg/bus"
)

type sentMessage struct {
	to   string
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage

	// failures holds the errors returned by the next calls, in order.
	failures []error
}

func (s *fakeSender) Send(_ context.Context, to string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, sentMessage{to: to, text: text})
	if len(s.failures) == 0 {
		return nil
	}

	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]sentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recordingSink) PublishEvent(_ context.Context, event bus.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return true
}

func (r *recordingSink) count(eventType bus.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, event := range r.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (r *recordingSink) last(eventType bus.EventType) (bus.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return bus.Event{}, false
}
