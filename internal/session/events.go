package session

import (
	"sync"

	"github.com/google/uuid"
)

// EventType enumerates session event kinds delivered to stream subscribers.
type EventType string

const (
	EventPhase       EventType = "phase"
	EventTick        EventType = "tick"
	EventAnswer      EventType = "answer"
	EventMark        EventType = "mark"
	EventNavigate    EventType = "navigate"
	EventExplanation EventType = "explanation"
	EventFinished    EventType = "finished"
	// EventWarning carries non-fatal failures: a persistence enqueue that
	// failed or a tutor request that came back with an error. Local state
	// is never rolled back for these.
	EventWarning EventType = "warning"
)

// Event is one observable session occurrence.
type Event struct {
	Type       EventType `json:"type"`
	Phase      Phase     `json:"phase,omitempty"`
	QuestionID uuid.UUID `json:"question_id,omitempty"`
	Index      int       `json:"index,omitempty"`
	Remaining  int       `json:"remaining,omitempty"`
	Text       string    `json:"text,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// feed fans events out to subscribers. Sends never block: a slow consumer
// drops events rather than stalling the controller.
type feed struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan Event)}
}

// Subscribe returns a buffered event channel and a cancel function.
func (f *feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan Event, 64)
	f.subs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}
}

func (f *feed) publish(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
