package gateway

import (
	"sync"
	"time"
)

// Dedup drops redelivered webhook messages. The platform redelivers on slow
// or missing acks, reusing the wamid, so each message ID is remembered for a
// window comfortably longer than the redelivery schedule.
type Dedup struct {
	mu     sync.Mutex
	seen   map[string]time.Time // message ID -> expiry
	window time.Duration
}

func NewDedup(window time.Duration) *Dedup {
	d := &Dedup{
		seen:   make(map[string]time.Time, 256),
		window: window,
	}
	go d.sweepLoop()
	return d
}

// IsDuplicate reports whether this message ID was already accepted within the
// window. First sight records the ID and returns false. An empty ID (some
// gateway variants omit it) is never treated as a duplicate.
func (d *Dedup) IsDuplicate(messageID string) bool {
	if messageID == "" {
		return false
	}
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if expiry, ok := d.seen[messageID]; ok && now.Before(expiry) {
		return true
	}
	d.seen[messageID] = now.Add(d.window)
	return false
}

func (d *Dedup) sweepLoop() {
	ticker := time.NewTicker(d.window / 2)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		d.mu.Lock()
		for id, expiry := range d.seen {
			if now.After(expiry) {
				delete(d.seen, id)
			}
		}
		d.mu.Unlock()
	}
}
