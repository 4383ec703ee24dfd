// Package notify carries cache-hit notifications from the storage layer
// to whoever wants to display them, without coupling either side.
package notify

import "sync"

// CacheHit describes one read served from the local store instead of the
// network.
type CacheHit struct {
	Type string // "page", "tafsir", "verse-info", "daily-ayah", "chapters"
	ID   string // Natural content key, e.g. "604" or "2:255/169"
}

// Bus is an in-process publish/subscribe channel for cache-hit events.
// Publishing never blocks: a subscriber that stops draining its channel
// loses events rather than stalling a read path.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan CacheHit
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan CacheHit)}
}

// Subscribe registers a new listener. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan CacheHit, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan CacheHit, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all subscribers, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(hit CacheHit) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- hit:
		default: // Non-blocking if channel full
		}
	}
}
