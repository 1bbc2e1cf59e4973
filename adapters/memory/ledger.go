package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"scorekit/core"
)

// DefaultMaxScore caps any single competitor's total unless configured
// otherwise.
const DefaultMaxScore int64 = 1_000_000_000

// AuditEntry is one immutable line of the update trail.
type AuditEntry struct {
	User     core.UserID   `json:"user"`
	Category core.Category `json:"category"`
	OldScore int64         `json:"old_score"`
	NewScore int64         `json:"new_score"`
	TokenID  string        `json:"token_id"`
	At       time.Time     `json:"at"`
}

// Ledger is a concurrent in-memory score ledger. Each (user, category) pair
// owns its own mutex so updates to the same competitor serialize while
// different competitors proceed in parallel.
type Ledger struct {
	maxScore int64
	records  sync.Map // map[recordKey]*record

	auditMu sync.Mutex
	audit   []AuditEntry

	catMu sync.Mutex
	cats  map[core.Category]struct{}
}

type recordKey struct {
	user     core.UserID
	category core.Category
}

type record struct {
	mu        sync.Mutex
	score     int64
	updatedAt time.Time
}

// NewLedger creates an in-memory ledger with the given score cap
// (DefaultMaxScore if maxScore <= 0).
func NewLedger(maxScore int64) *Ledger {
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return &Ledger{maxScore: maxScore, cats: map[core.Category]struct{}{}}
}

func (l *Ledger) getOrCreate(user core.UserID, category core.Category) *record {
	key := recordKey{user: user, category: category}
	if v, ok := l.records.Load(key); ok {
		return v.(*record)
	}
	actual, _ := l.records.LoadOrStore(key, &record{})
	return actual.(*record)
}

func (l *Ledger) Score(_ context.Context, user core.UserID, category core.Category) (int64, error) {
	if v, ok := l.records.Load(recordKey{user: user, category: category}); ok {
		rec := v.(*record)
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.score, nil
	}
	return 0, nil
}

// ApplyDelta serializes per (user, category): the record mutex is held from
// the read of the current score through the commit, so the second of two
// concurrent calls always sees the first's result.
func (l *Ledger) ApplyDelta(_ context.Context, user core.UserID, category core.Category, delta int64, tokenID string) (core.Entry, error) {
	rec := l.getOrCreate(user, category)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.score + delta
	if next < 0 {
		return core.Entry{}, core.WrapConflict("score would become negative")
	}
	if next > l.maxScore {
		return core.Entry{}, core.WrapConflict("score would exceed cap")
	}

	old := rec.score
	now := time.Now().UTC()
	rec.score = next
	rec.updatedAt = now

	l.auditMu.Lock()
	l.audit = append(l.audit, AuditEntry{
		User: user, Category: category,
		OldScore: old, NewScore: next,
		TokenID: tokenID, At: now,
	})
	l.auditMu.Unlock()

	l.catMu.Lock()
	l.cats[category] = struct{}{}
	l.catMu.Unlock()

	return core.Entry{User: user, Score: next, UpdatedAt: now}, nil
}

func (l *Ledger) TopN(_ context.Context, category core.Category, n int) ([]core.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	var entries []core.Entry
	l.records.Range(func(k, v any) bool {
		key := k.(recordKey)
		if key.category != category {
			return true
		}
		rec := v.(*record)
		rec.mu.Lock()
		e := core.Entry{User: key.user, Score: rec.score, UpdatedAt: rec.updatedAt}
		rec.mu.Unlock()
		entries = append(entries, e)
		return true
	})
	sort.SliceStable(entries, func(i, j int) bool { return core.Less(entries[i], entries[j]) })
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (l *Ledger) Categories(_ context.Context) ([]core.Category, error) {
	l.catMu.Lock()
	defer l.catMu.Unlock()
	out := make([]core.Category, 0, len(l.cats))
	for c := range l.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// AuditTrail returns a copy of every recorded update, in commit order.
func (l *Ledger) AuditTrail() []AuditEntry {
	l.auditMu.Lock()
	defer l.auditMu.Unlock()
	out := make([]AuditEntry, len(l.audit))
	copy(out, l.audit)
	return out
}
