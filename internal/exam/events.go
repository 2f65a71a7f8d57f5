package exam

import "github.com/aitrainer/trainer-backend/internal/model"

// EventType names a session event.
type EventType string

const (
	EventTick      EventType = "tick"
	EventSubmitted EventType = "submitted"
)

// Event is pushed to subscribers.
type Event struct {
	Type      EventType
	Remaining int
	Result    *model.ExamResult
}

// Subscribe returns a channel of session events and a function that
// unsubscribes. Slow subscribers miss ticks rather than blocking the
// session, but always receive EventSubmitted, after which the channel
// is closed.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.phase == PhaseSubmitted {
		ch <- Event{Type: EventSubmitted, Result: s.result}
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

const subscriberBuffer = 8

// publish fans ev out, dropping it for subscribers whose buffer is full.
// Callers hold s.mu.
func (s *Session) publish(ev Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// publishFinal delivers the terminal event to every subscriber and closes
// their channels. A full buffer gives up its oldest tick to make room;
// only s.mu holders send, so the send below never blocks. Callers hold s.mu.
func (s *Session) publishFinal(ev Event) {
	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
		close(ch)
		delete(s.subscribers, id)
	}
}
