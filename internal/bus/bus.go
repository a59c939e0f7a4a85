// Package bus is the in-process change notification channel between the
// stores and the views that render them. Publishers never block: a full
// subscriber buffer means a refresh is already pending, so the event is dropped.
package bus

import (
	"io"
	"log/slog"
	"sync"
)

// Op describes what happened to a collection.
type Op string

const (
	OpSave     Op = "save"     // whole collection replaced
	OpUpsert   Op = "upsert"   // one record inserted or updated
	OpDelete   Op = "delete"   // one record removed
	OpSeed     Op = "seed"     // defaults written on first read
	OpExternal Op = "external" // another process changed the file
)

// Event is published after a collection changes.
type Event struct {
	Key string
	Op  Op
	ID  string
}

const subscriberBuffer = 8

type subscription struct {
	key string
	ch  chan Event
}

// Bus fans events out to subscribers filtered by collection key.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	logger *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{subs: make(map[int]*subscription), logger: logger}
}

// Subscribe registers interest in key ("" means every key). The returned
// cancel func unregisters and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(key string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscription{key: key, ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers ev to every matching subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.key != "" && sub.key != ev.Key {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Debug("bus subscriber busy, event coalesced", "key", ev.Key, "op", ev.Op)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
