package leaderboard

import (
	"sort"
	"sync"

	"scorekit/core"
)

// DefaultSize is how many competitors a category retains unless configured
// otherwise.
const DefaultSize = 10

// TopN is an internally synchronized bounded board. Each category holds at
// most size entries kept sorted by core.Less; everything below the cut is
// evicted on the spot. With size in the tens a sorted slice beats fancier
// structures and keeps the ordering fully deterministic.
type TopN struct {
	size int
	mu   sync.RWMutex
	cats map[core.Category][]core.Entry
}

// NewTopN creates a board retaining at most size entries per category.
func NewTopN(size int) *TopN {
	if size < 1 {
		size = DefaultSize
	}
	return &TopN{size: size, cats: map[core.Category][]core.Entry{}}
}

// Size returns the configured per-category bound.
func (b *TopN) Size() int { return b.size }

func (b *TopN) Upsert(category core.Category, e core.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.cats[category]
	for i := range entries {
		if entries[i].User == e.User {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	entries = append(entries, e)
	sort.SliceStable(entries, func(i, j int) bool { return core.Less(entries[i], entries[j]) })
	if len(entries) > b.size {
		entries = entries[:b.size]
	}
	b.cats[category] = entries
}

func (b *TopN) Snapshot(category core.Category) core.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := b.cats[category]
	snap := core.Snapshot{Category: category, Entries: make([]core.Entry, len(entries))}
	copy(snap.Entries, entries)
	return snap
}

func (b *TopN) Replace(category core.Category, entries []core.Entry) {
	sorted := make([]core.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return core.Less(sorted[i], sorted[j]) })
	if len(sorted) > b.size {
		sorted = sorted[:b.size]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(sorted) == 0 {
		delete(b.cats, category)
		return
	}
	b.cats[category] = sorted
}

func (b *TopN) Categories() []core.Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Category, 0, len(b.cats))
	for c := range b.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ Board = (*TopN)(nil)
