package leaderboard

import (
	"fmt"
	"testing"
	"time"

	"scorekit/core"
)

func entry(user string, score int64, at int64) core.Entry {
	return core.Entry{User: core.UserID(user), Score: score, UpdatedAt: time.Unix(at, 0)}
}

func TestTopNBasicOrdering(t *testing.T) {
	b := NewTopN(3)
	b.Upsert("global", entry("a", 10, 1))
	b.Upsert("global", entry("b", 20, 2))
	b.Upsert("global", entry("c", 15, 3))
	snap := b.Snapshot("global")
	if len(snap.Entries) != 3 || snap.Entries[0].User != "b" || snap.Entries[1].User != "c" || snap.Entries[2].User != "a" {
		t.Fatalf("unexpected order: %#v", snap.Entries)
	}
	b.Upsert("global", entry("a", 25, 4))
	snap = b.Snapshot("global")
	if snap.Entries[0].User != "a" {
		t.Fatalf("a should lead after update, got %#v", snap.Entries)
	}
}

func TestTopNSizeInvariant(t *testing.T) {
	for size := 1; size <= 5; size++ {
		b := NewTopN(size)
		for i := 0; i < 25; i++ {
			b.Upsert("global", entry(fmt.Sprintf("u%02d", i), int64(i%7), int64(i)))
			if got := len(b.Snapshot("global").Entries); got > size {
				t.Fatalf("size=%d: snapshot grew to %d", size, got)
			}
		}
	}
}

func TestTopNEvictsLowest(t *testing.T) {
	b := NewTopN(2)
	b.Upsert("global", entry("a", 30, 1))
	b.Upsert("global", entry("b", 20, 2))
	b.Upsert("global", entry("c", 10, 3))
	snap := b.Snapshot("global")
	if len(snap.Entries) != 2 || snap.Entries[0].User != "a" || snap.Entries[1].User != "b" {
		t.Fatalf("lowest entry should have been evicted: %#v", snap.Entries)
	}
}

func TestTopNUpdatedUserStillEvictable(t *testing.T) {
	// Raising your own score does not guarantee a slot if it is still below
	// the current cut.
	b := NewTopN(2)
	b.Upsert("global", entry("a", 30, 1))
	b.Upsert("global", entry("b", 20, 2))
	b.Upsert("global", entry("c", 5, 3))
	b.Upsert("global", entry("c", 10, 4))
	snap := b.Snapshot("global")
	for _, e := range snap.Entries {
		if e.User == "c" {
			t.Fatalf("c should not be ranked: %#v", snap.Entries)
		}
	}
}

func TestTopNTieBreakByTimestamp(t *testing.T) {
	b := NewTopN(5)
	b.Upsert("global", entry("late", 100, 50))
	b.Upsert("global", entry("early", 100, 10))
	snap := b.Snapshot("global")
	if snap.Entries[0].User != "early" || snap.Entries[1].User != "late" {
		t.Fatalf("first to reach the score must rank higher: %#v", snap.Entries)
	}
}

func TestTopNReplace(t *testing.T) {
	b := NewTopN(3)
	b.Upsert("global", entry("phantom", 999, 1))
	b.Replace("global", []core.Entry{entry("a", 5, 2), entry("b", 7, 3)})
	snap := b.Snapshot("global")
	if len(snap.Entries) != 2 || snap.Entries[0].User != "b" {
		t.Fatalf("replace should swap contents wholesale: %#v", snap.Entries)
	}
	b.Replace("global", nil)
	if got := b.Categories(); len(got) != 0 {
		t.Fatalf("replacing with nothing should drop the category: %v", got)
	}
}

func TestTopNCategoriesIsolated(t *testing.T) {
	b := NewTopN(3)
	b.Upsert("eu", entry("a", 10, 1))
	b.Upsert("us", entry("b", 20, 2))
	if got := len(b.Snapshot("eu").Entries); got != 1 {
		t.Fatalf("categories leaked: %d", got)
	}
	cats := b.Categories()
	if len(cats) != 2 || cats[0] != "eu" || cats[1] != "us" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestTopNSnapshotIsCopy(t *testing.T) {
	b := NewTopN(3)
	b.Upsert("global", entry("a", 10, 1))
	snap := b.Snapshot("global")
	snap.Entries[0].Score = 12345
	if b.Snapshot("global").Entries[0].Score != 10 {
		t.Fatal("snapshot must not alias internal storage")
	}
}
