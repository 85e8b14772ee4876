package match

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/saolsen/gameplay/game"
)

// EventType names what happened to a match.
type EventType string

const (
	EventStart EventType = "start"
	EventTurn  EventType = "turn"
	EventEnd   EventType = "end"
)

// Event is published after every change to a match. State is what a
// spectator may see: the public view while the match is in progress and
// the full state once it is over.
type Event struct {
	Type   EventType       `json:"type"`
	Match  string          `json:"match"`
	Game   game.Kind       `json:"game"`
	Turn   int             `json:"turn"`
	Player *int            `json:"player,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
	State  json.RawMessage `json:"state"`
	Status game.Status     `json:"status"`
	Time   time.Time       `json:"time"`
}

const subscriberBuffer = 64

// Bus fans events out to subscribers. A subscriber that falls more than a
// buffer behind misses events; Publish never blocks.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	match string
	ch    chan Event
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe returns a channel of events for match, or for every match when
// match is empty. Calling cancel closes the channel.
func (b *Bus) Subscribe(match string) (events <-chan Event, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = subscription{match: match, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers e to every matching subscriber with room for it and
// reports how many were skipped.
func (b *Bus) Publish(e Event) (dropped int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.match != "" && s.match != e.Match {
			continue
		}
		select {
		case s.ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}
