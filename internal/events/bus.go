// Package events carries gesture, lock and sync transitions from the
// engine to every output: a fan-out bus for live consumers and a bounded
// history for status queries.
package events

import (
	"sync"
	"time"

	"myohub/internal/gesture"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindGesture Kind = "gesture"
	KindLock    Kind = "lock"
	KindSynced  Kind = "synced"
)

// Event is one engine transition, stamped by the bus with a sequence
// number and time.
type Event struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Gesture string    `json:"gesture,omitempty"`
	Locked  bool      `json:"locked"`
}

// NewGesture builds an unstamped gesture event.
func NewGesture(g gesture.Label) Event {
	return Event{Kind: KindGesture, Gesture: g.String()}
}

// NewLock builds an unstamped lock transition event.
func NewLock(locked bool) Event {
	return Event{Kind: KindLock, Locked: locked}
}

// NewSynced builds an unstamped calibration-done event.
func NewSynced() Event {
	return Event{Kind: KindSynced}
}

// Bus fans events out to subscribers. Sends never block: a subscriber that
// falls behind loses events rather than stalling the engine. Unlike a
// state feed there is no last-value replay; a command delivered twice is
// worse than one delivered late.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	seq    uint64
	closed bool
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
}

// Subscribe registers a listener and returns its channel plus a cancel
// func. The channel closes on cancel and on Close; cancel is idempotent.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	return ch, func() { b.drop(id) }
}

func (b *Bus) drop(id int) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish stamps the event and delivers it to every subscriber that has
// room. It returns the stamped event. Delivery happens under the bus
// lock so a concurrent Close cannot yank a channel mid-send; the sends
// are non-blocking, so the lock is never held long.
func (b *Bus) Publish(ev Event) Event {
	if b == nil {
		return ev
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ev
	}
	b.seq++
	ev.Seq = b.seq
	if ev.Time.IsZero() {
		ev.Time = b.now()
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Close terminates every subscription. Later publishes are dropped and
// later subscribers get an already-closed channel.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for id, ch := range b.subs {
			delete(b.subs, id)
			close(ch)
		}
	}
	b.mu.Unlock()
}
