package analytics

import (
	"context"
	"sync"

	"scorekit/core"
	"scorekit/engine"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Attach subscribes a hook to every domain event type on the coordinator.
// The returned func detaches it again.
func Attach(c *engine.Coordinator, h Hook) func() {
	types := []core.EventType{
		core.EventScoreApplied,
		core.EventLeaderboardChanged,
		core.EventDriftRepaired,
		core.EventTokenIssued,
	}
	unsubs := make([]func(), 0, len(types))
	for _, typ := range types {
		unsubs = append(unsubs, c.Subscribe(typ, func(_ context.Context, e core.Event) { h.OnEvent(e) }))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// DAS tracks daily active scorers: distinct users who applied at least one
// score update per UTC day.
type DAS struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAS() *DAS { return &DAS{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAS) OnEvent(e core.Event) {
	if e.Type != core.EventScoreApplied {
		return
	}
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAS) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// Counters aggregates operational KPIs per category.
type Counters struct {
	mu sync.RWMutex

	updatesByCategory map[core.Category]int64
	pointsByCategory  map[core.Category]int64
	pointsByDay       map[string]int64

	tokensIssued    int64
	broadcasts      int64
	driftRepairs    int64
	entriesRepaired int64
}

func NewCounters() *Counters {
	return &Counters{
		updatesByCategory: make(map[core.Category]int64),
		pointsByCategory:  make(map[core.Category]int64),
		pointsByDay:       make(map[string]int64),
	}
}

func (c *Counters) OnEvent(e core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case core.EventScoreApplied:
		c.updatesByCategory[e.Category]++
		c.pointsByCategory[e.Category] += e.Delta
		c.pointsByDay[e.Time.UTC().Format("2006-01-02")] += e.Delta
	case core.EventLeaderboardChanged:
		c.broadcasts++
	case core.EventDriftRepaired:
		c.driftRepairs++
		c.entriesRepaired += int64(e.Added + e.Removed)
	case core.EventTokenIssued:
		c.tokensIssued++
	}
}

// UpdatesApplied returns how many score updates a category has seen.
func (c *Counters) UpdatesApplied(category core.Category) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatesByCategory[category]
}

// PointsAwarded returns the sum of deltas applied in a category.
func (c *Counters) PointsAwarded(category core.Category) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pointsByCategory[category]
}

// PointsAwardedByDay returns the sum of deltas applied on a UTC day.
func (c *Counters) PointsAwardedByDay(day string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pointsByDay[day]
}

// TokensIssued returns how many action tokens were minted.
func (c *Counters) TokensIssued() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokensIssued
}

// Broadcasts returns how many snapshot broadcasts went out.
func (c *Counters) Broadcasts() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.broadcasts
}

// DriftRepairs reports reconciliation activity: how many repair passes ran
// and how many board entries they touched.
func (c *Counters) DriftRepairs() (passes, entries int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.driftRepairs, c.entriesRepaired
}
