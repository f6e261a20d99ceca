// Package status provides the in-process publish/subscribe channel the
// engine uses to report sync state to the UI.
//
// The broadcaster holds no history and no persistence: subscribers get
// every update published after they subscribe, and the observer list is
// gone on process restart.
package status

import (
	"sync"
	"time"
)

// Status is one snapshot of the engine's externally visible state.
type Status struct {
	// Online reports the last known connectivity state.
	Online bool `json:"online"`
	// Syncing is true while a sync cycle is in flight.
	Syncing bool `json:"syncing"`
	// PendingCount is the length of the pending-operation log.
	PendingCount int `json:"pending_count"`
	// StuckCount is the number of entity rows left permanently pending
	// after their operation was evicted from the queue.
	StuckCount int `json:"stuck_count"`
	// LastSyncAt is the completion time of the last successful cycle,
	// nil if none.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

const subscriberBuffer = 16

// Broadcaster fans status updates out to any number of subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Status
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Status)}
}

// Subscribe registers a new subscriber and returns its update channel
// together with a cancel function. Cancelling removes the subscription
// and closes the channel; cancelling twice is safe.
func (b *Broadcaster) Subscribe() (<-chan Status, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Status, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers a status update to every subscriber without
// blocking. A subscriber that has fallen behind loses its oldest
// buffered update; the UI only ever needs the latest state.
func (b *Broadcaster) Publish(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes all subscriber channels and rejects further publishes.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
