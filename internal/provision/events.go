package provision

import (
	"sync"
	"time"
)

// EventType names a provisioning event on the /events stream.
type EventType string

const (
	EventSnapshot      EventType = "snapshot"
	EventState         EventType = "state"
	EventHotspot       EventType = "hotspot"
	EventRescan        EventType = "rescan"
	EventConnecting    EventType = "connecting"
	EventConnectFailed EventType = "connect_failed"
	EventConnected     EventType = "connected"
)

// Event is one provisioning notice.
type Event struct {
	Type    EventType `json:"type"`
	State   string    `json:"state"`
	Message string    `json:"message,omitempty"`
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
}

// broker fans events out to subscribers. Slow subscribers lose events
// rather than blocking the state machine.
type broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe(buf int, first Event) (<-chan Event, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Event, buf)
	ch <- first

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
