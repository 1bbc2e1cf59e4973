package memory

import (
	"context"
	"sync"
	"time"
)

// Tokens is an in-memory token store with a background sweep standing in for
// a cache's native TTL expiry. The pending -> consumed transition happens
// under one mutex, which is the atomicity the token contract leans on.
type Tokens struct {
	mu       sync.Mutex
	pending  map[string]time.Time // id -> expiry
	consumed map[string]time.Time // id -> retention deadline
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewTokens creates a token store sweeping expired entries every interval
// (a minute if interval <= 0).
func NewTokens(interval time.Duration) *Tokens {
	if interval <= 0 {
		interval = time.Minute
	}
	t := &Tokens{
		pending:  map[string]time.Time{},
		consumed: map[string]time.Time{},
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go t.sweepLoop(interval)
	return t
}

// Close stops the sweeper.
func (t *Tokens) Close() { t.stopOnce.Do(func() { close(t.stop) }) }

func (t *Tokens) Save(_ context.Context, id string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[id] = t.now().Add(ttl)
	return nil
}

func (t *Tokens) Consume(_ context.Context, id string, retain time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.pending[id]
	if !ok || t.now().After(expiry) {
		delete(t.pending, id)
		return false, nil
	}
	delete(t.pending, id)
	t.consumed[id] = t.now().Add(retain)
	return true, nil
}

func (t *Tokens) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stop:
			return
		}
	}
}

func (t *Tokens) sweep() {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, expiry := range t.pending {
		if now.After(expiry) {
			delete(t.pending, id)
		}
	}
	for id, deadline := range t.consumed {
		if now.After(deadline) {
			delete(t.consumed, id)
		}
	}
}
