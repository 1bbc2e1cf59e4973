package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"scorekit/core"
)

type staticSource map[core.Category]core.Snapshot

func (s staticSource) Snapshot(category core.Category) core.Snapshot {
	if snap, ok := s[category]; ok {
		return snap
	}
	return core.Snapshot{Category: category}
}

func TestHubInitialSnapshotOnSubscribe(t *testing.T) {
	source := staticSource{
		"global": {Category: "global", Entries: []core.Entry{{User: "alice", Score: 50}}},
	}
	h := NewHub(source)

	sub := h.Subscribe("global", 4)
	defer h.Unsubscribe(sub)

	select {
	case snap := <-sub.C:
		if len(snap.Entries) != 1 || snap.Entries[0].User != "alice" {
			t.Fatalf("unexpected initial snapshot: %+v", snap)
		}
	default:
		t.Fatal("expected the current snapshot to be queued on subscribe")
	}
}

func TestHubPublishReachesOnlyCategorySubscribers(t *testing.T) {
	h := NewHub(nil)
	global := h.Subscribe("global", 4)
	weekly := h.Subscribe("weekly", 4)
	defer h.Unsubscribe(global)
	defer h.Unsubscribe(weekly)

	h.Publish(context.Background(), "global", core.Snapshot{
		Category: "global",
		Entries:  []core.Entry{{User: "bob", Score: 10}},
	})

	select {
	case snap := <-global.C:
		if snap.Entries[0].User != "bob" {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("global subscriber did not receive the snapshot")
	}

	select {
	case snap := <-weekly.C:
		t.Fatalf("weekly subscriber must not receive global updates: %+v", snap)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("global", 1)
	h.Unsubscribe(sub)
	if _, ok := <-sub.C; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.SubscriberCount("global") != 0 {
		t.Fatal("subscriber should be gone")
	}
	// Double unsubscribe must be a no-op.
	h.Unsubscribe(sub)
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(nil)
	slow := h.Subscribe("global", 1)
	defer h.Unsubscribe(slow)

	done := make(chan struct{})
	go func() {
		// Nobody drains slow.C; publishes past the buffer must drop, not
		// block.
		for i := 0; i < 100; i++ {
			h.Publish(context.Background(), "global", core.Snapshot{Category: "global"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHubConcurrentChurnWithPublishers(t *testing.T) {
	source := staticSource{
		"global": {Category: "global", Entries: []core.Entry{{User: "alice", Score: 50}}},
	}
	h := NewHub(source)

	stop := make(chan struct{})
	var publishers sync.WaitGroup

	// Publishers hammer the category while subscribers come and go. A send
	// racing an unsubscribe must drop, never panic.
	for i := 0; i < 4; i++ {
		publishers.Add(1)
		go func() {
			defer publishers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.Publish(context.Background(), "global", core.Snapshot{Category: "global"})
				}
			}
		}()
	}

	var churn sync.WaitGroup
	for i := 0; i < 8; i++ {
		churn.Add(1)
		go func() {
			defer churn.Done()
			for j := 0; j < 200; j++ {
				sub := h.Subscribe("global", 1)
				<-sub.C // the initial frame is always queued
				h.Unsubscribe(sub)
			}
		}()
	}

	churned := make(chan struct{})
	go func() {
		churn.Wait()
		close(churned)
	}()

	select {
	case <-churned:
	case <-time.After(5 * time.Second):
		t.Fatal("hub deadlocked under concurrent subscribe/unsubscribe/publish")
	}

	close(stop)
	publishers.Wait()

	if h.SubscriberCount("global") != 0 {
		t.Fatalf("expected no subscribers left, got %d", h.SubscriberCount("global"))
	}
}

func TestMarshalJSON(t *testing.T) {
	snap := core.Snapshot{Category: "global", Entries: []core.Entry{{User: "alice", Score: 50}}}
	b := MarshalJSON(snap)
	var out core.Snapshot
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Category != "global" || out.Entries[0].Score != 50 {
		t.Fatalf("unexpected round trip: %+v", out)
	}
}
