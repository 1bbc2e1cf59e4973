package core

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID("  Alice ")
	if err != nil {
		t.Fatal(err)
	}
	if id != UserID("alice") {
		t.Fatalf("unexpected id: %s", id)
	}
	if _, err := NormalizeUserID("   "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := NormalizeUserID("a|b"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	c, err := NormalizeCategory("Global")
	if err != nil {
		t.Fatal(err)
	}
	if c != Category("global") {
		t.Fatalf("unexpected category: %s", c)
	}
	if _, err := NormalizeCategory("no spaces"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestLessTieBreak(t *testing.T) {
	early := Entry{User: "bob", Score: 100, UpdatedAt: time.Unix(10, 0)}
	late := Entry{User: "alice", Score: 100, UpdatedAt: time.Unix(20, 0)}
	if !Less(early, late) {
		t.Fatal("earlier timestamp should rank higher on equal score")
	}
	if Less(late, early) {
		t.Fatal("later timestamp must not rank higher on equal score")
	}
	higher := Entry{User: "zed", Score: 101, UpdatedAt: time.Unix(99, 0)}
	if !Less(higher, early) {
		t.Fatal("higher score always ranks first")
	}
}

func TestSnapshotEqualIgnoresTimestamps(t *testing.T) {
	a := Snapshot{Category: "global", Entries: []Entry{{User: "alice", Score: 50, UpdatedAt: time.Unix(1, 0)}}}
	b := Snapshot{Category: "global", Entries: []Entry{{User: "alice", Score: 50, UpdatedAt: time.Unix(2, 0)}}}
	if !a.Equal(b) {
		t.Fatal("snapshots differing only in timestamps should be equal")
	}
	b.Entries[0].Score = 60
	if a.Equal(b) {
		t.Fatal("score change must not compare equal")
	}
}

func TestSnapshotClone(t *testing.T) {
	a := Snapshot{Category: "global", Entries: []Entry{{User: "alice", Score: 1}}}
	cp := a.Clone()
	cp.Entries[0].Score = 99
	if a.Entries[0].Score != 1 {
		t.Fatal("clone must not share backing storage")
	}
}
