package analytics

import (
	"context"
	"testing"
	"time"

	"scorekit/adapters/memory"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/leaderboard"
	"scorekit/token"
)

func TestDAS_CountsDistinctScorers(t *testing.T) {
	das := NewDAS()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	ev := core.Event{Type: core.EventScoreApplied, Time: now, UserID: "alice", Category: "global", Delta: 5}
	das.OnEvent(ev)
	das.OnEvent(ev) // same user again
	ev.UserID = "bob"
	das.OnEvent(ev)

	// Token issuance is not scoring activity.
	das.OnEvent(core.Event{Type: core.EventTokenIssued, Time: now, UserID: "carol"})

	if got := das.Count("2026-03-14"); got != 2 {
		t.Fatalf("expected 2 active scorers, got %d", got)
	}
	if got := das.Count("2026-03-15"); got != 0 {
		t.Fatalf("expected 0 scorers on empty day, got %d", got)
	}
}

func TestCounters_Aggregation(t *testing.T) {
	c := NewCounters()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	c.OnEvent(core.Event{Type: core.EventScoreApplied, Time: now, UserID: "alice", Category: "global", Delta: 5})
	c.OnEvent(core.Event{Type: core.EventScoreApplied, Time: now, UserID: "bob", Category: "global", Delta: 7})
	c.OnEvent(core.Event{Type: core.EventScoreApplied, Time: now, UserID: "bob", Category: "weekly", Delta: 3})
	c.OnEvent(core.Event{Type: core.EventLeaderboardChanged, Time: now, Category: "global"})
	c.OnEvent(core.Event{Type: core.EventDriftRepaired, Time: now, Category: "global", Added: 2, Removed: 1})
	c.OnEvent(core.Event{Type: core.EventTokenIssued, Time: now, UserID: "alice", Category: "global"})

	if got := c.UpdatesApplied("global"); got != 2 {
		t.Fatalf("expected 2 global updates, got %d", got)
	}
	if got := c.PointsAwarded("global"); got != 12 {
		t.Fatalf("expected 12 global points, got %d", got)
	}
	if got := c.PointsAwardedByDay("2026-03-14"); got != 15 {
		t.Fatalf("expected 15 points on the day, got %d", got)
	}
	if got := c.Broadcasts(); got != 1 {
		t.Fatalf("expected 1 broadcast, got %d", got)
	}
	passes, entries := c.DriftRepairs()
	if passes != 1 || entries != 3 {
		t.Fatalf("expected 1 pass touching 3 entries, got %d/%d", passes, entries)
	}
	if got := c.TokensIssued(); got != 1 {
		t.Fatalf("expected 1 token issued, got %d", got)
	}
}

func TestAttach_EndToEnd(t *testing.T) {
	ledger := memory.NewLedger(0)
	store := memory.NewTokens(time.Minute)
	defer store.Close()
	svc, err := token.NewService([]byte("analytics-test-key-0123456789abc"), store)
	if err != nil {
		t.Fatal(err)
	}
	board := leaderboard.NewTopN(10)
	bus := engine.NewEventBus(engine.DispatchSync)
	coord := engine.NewCoordinator(ledger, svc, board, nil, bus, engine.DefaultLimits(), nil)
	defer coord.Close()

	counters := NewCounters()
	detach := Attach(coord, counters)

	ctx := context.Background()
	tok, err := coord.IssueToken(ctx, "alice", "global")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := coord.SubmitScore(ctx, "alice", "global", tok, 9); err != nil {
		t.Fatal(err)
	}

	if got := counters.UpdatesApplied("global"); got != 1 {
		t.Fatalf("expected 1 update, got %d", got)
	}
	if got := counters.TokensIssued(); got != 1 {
		t.Fatalf("expected 1 token, got %d", got)
	}

	detach()
	tok2, err := coord.IssueToken(ctx, "alice", "global")
	if err != nil {
		t.Fatal(err)
	}
	_ = tok2
	if got := counters.TokensIssued(); got != 1 {
		t.Fatalf("detached hook still counting, got %d", got)
	}
}
