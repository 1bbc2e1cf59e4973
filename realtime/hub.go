package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"scorekit/core"
)

// Snapshotter supplies the current ranking for a category, so a fresh
// subscriber never starts blank.
type Snapshotter interface {
	Snapshot(category core.Category) core.Snapshot
}

// Subscription is the handle returned by Subscribe. C is closed on
// Unsubscribe.
type Subscription struct {
	C        <-chan core.Snapshot
	id       int
	category core.Category
	ch       chan core.Snapshot
}

// Category returns the category this subscription follows.
func (s *Subscription) Category() core.Category { return s.category }

// Hub fans leaderboard snapshots out to per-category subscribers. Delivery
// is best-effort: sends never block, and a full subscriber channel drops the
// snapshot rather than stalling the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[core.Category]map[int]chan core.Snapshot
	next   int
	source Snapshotter
}

// NewHub creates a hub. source may be nil, in which case subscribers start
// without an initial snapshot.
func NewHub(source Snapshotter) *Hub {
	return &Hub{subs: map[core.Category]map[int]chan core.Snapshot{}, source: source}
}

// Subscribe registers a subscriber for one category. The current snapshot is
// queued onto the channel immediately, before any published update.
func (h *Hub) Subscribe(category core.Category, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan core.Snapshot, buffer)
	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[category] == nil {
		h.subs[category] = map[int]chan core.Snapshot{}
	}
	h.subs[category][id] = ch
	if h.source != nil {
		// Registration and the first frame happen under the same lock, so
		// no publish can slip in between; the fresh buffer always fits.
		ch <- h.source.Snapshot(category).Clone()
	}
	h.mu.Unlock()
	return &Subscription{C: ch, id: id, category: category, ch: ch}
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[sub.category]; ok {
		if _, ok := m[sub.id]; ok {
			delete(m, sub.id)
			close(sub.ch)
		}
		if len(m) == 0 {
			delete(h.subs, sub.category)
		}
	}
}

// Publish delivers the snapshot to every current subscriber of the category.
// Sends are non-blocking and happen under the read lock; Unsubscribe closes
// channels under the write lock, so a send can never land on a closed channel.
func (h *Hub) Publish(_ context.Context, category core.Category, snap core.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[category] {
		select {
		case ch <- snap.Clone():
		default: /* drop if full */
		}
	}
}

// SubscriberCount reports how many subscribers follow a category.
func (h *Hub) SubscriberCount(category core.Category) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[category])
}

// MarshalJSON is a helper to convert snapshots to JSON bytes for
// WebSocket/SSE transports.
func MarshalJSON(snap core.Snapshot) []byte {
	b, _ := json.Marshal(snap)
	return b
}
