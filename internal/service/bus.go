package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// Presentation event types published by the coordinator.
const (
	EventTemperature = "temperature"
	EventTargetBand  = "target_band"
	EventPressure    = "pressure"
	EventTelemetry   = "telemetry"
	EventState       = "state"
	EventControls    = "controls"
	EventProgress    = "progress"
	EventElapsed     = "elapsed"
)

// Event is one typed notification for the Presentation Layer.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Publisher receives coordinator events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

// Subscription receives events from a Bus until Unsubscribe.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// Bus fans events out to every subscriber. A subscriber whose buffer is
// full misses the event; the tick never waits on a slow client.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

func (b *Bus) Subscribe(bufSize int) *Subscription {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber lagged.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
