package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"scorekit/core"
)

func TestEventBusSyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	var got core.Event
	unsub := bus.Subscribe(core.EventScoreApplied, func(_ context.Context, e core.Event) { got = e })

	bus.Publish(context.Background(), core.NewScoreApplied("alice", "global", 50, 50, "tok"))
	if got.UserID != "alice" || got.Score != 50 {
		t.Fatalf("unexpected event: %+v", got)
	}

	unsub()
	bus.Publish(context.Background(), core.NewScoreApplied("bob", "global", 1, 1, "tok"))
	if got.UserID != "alice" {
		t.Fatal("unsubscribed handler should not fire")
	}
}

func TestEventBusAsyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()

	var count atomic.Int64
	bus.Subscribe(core.EventLeaderboardChanged, func(_ context.Context, _ core.Event) { count.Add(1) })

	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), core.NewLeaderboardChanged(core.Snapshot{Category: "global"}))
	}

	deadline := time.Now().Add(time.Second)
	for count.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if count.Load() != 10 {
		t.Fatalf("expected 10 async deliveries, got %d", count.Load())
	}
}

func TestEventBusCloseWaitsForInFlightHandler(t *testing.T) {
	bus := NewEventBus(DispatchAsync)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	bus.Subscribe(core.EventScoreApplied, func(_ context.Context, _ core.Event) {
		close(started)
		<-release
		finished.Store(true)
	})

	bus.Publish(context.Background(), core.NewScoreApplied("alice", "global", 1, 1, "tok"))
	<-started

	closed := make(chan struct{})
	go func() {
		bus.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the handler finished")
	}
	if !finished.Load() {
		t.Fatal("handler did not run to completion before Close returned")
	}
}

func TestEventBusTypeIsolation(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	fired := false
	bus.Subscribe(core.EventDriftRepaired, func(_ context.Context, _ core.Event) { fired = true })
	bus.Publish(context.Background(), core.NewTokenIssued("alice", "global", "tok"))
	if fired {
		t.Fatal("handler fired for an unrelated event type")
	}
}
