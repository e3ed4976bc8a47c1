package events

import (
	"sync"
	"time"
)

type HistoryConfig struct {
	// Capacity limits memory use. When exceeded, oldest events fall off.
	// Zero means 256.
	Capacity int
	// MaxAge drops events older than this. Zero keeps events until
	// capacity pushes them out.
	MaxAge time.Duration
}

// History is a bounded store of recent events, trimmed by count and age.
type History struct {
	mu   sync.Mutex
	evs  []Event
	size int
	age  time.Duration
	now  func() time.Time
}

func NewHistory(cfg HistoryConfig) *History {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	return &History{size: cfg.Capacity, age: cfg.MaxAge, now: time.Now}
}

func (h *History) Add(ev Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.evs = append(h.evs, ev)
	h.trimLocked()
	h.mu.Unlock()
}

// trimLocked drops events beyond capacity or older than the age bound.
// Events arrive in time order, so the stale ones are always a prefix.
func (h *History) trimLocked() {
	start := 0
	if n := len(h.evs) - h.size; n > 0 {
		start = n
	}
	if h.age > 0 {
		cutoff := h.now().Add(-h.age)
		for start < len(h.evs) && h.evs[start].Time.Before(cutoff) {
			start++
		}
	}
	if start > 0 {
		h.evs = append(h.evs[:0], h.evs[start:]...)
	}
}

// Recent returns up to limit events, newest first. limit <= 0 means all
// retained events. Aged-out events are evicted before the copy, so a
// quiet hour leaves the history empty rather than stale.
func (h *History) Recent(limit int) []Event {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trimLocked()

	n := len(h.evs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.evs[i])
	}
	return out
}

func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trimLocked()
	return len(h.evs)
}
