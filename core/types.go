package core

import (
	"strings"
	"time"
)

// UserID uniquely identifies a competitor.
type UserID string

// Category is an independent leaderboard namespace, e.g. a game mode or region.
// Entries in unrelated categories never interact.
type Category string

// Entry is one competitor's current standing in a category.
type Entry struct {
	User      UserID    `json:"user"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is an ordered copy of a category's top-N at a point in time.
// Entries are ranked by Less: score descending, ties broken by the earlier
// UpdatedAt (first to reach the score ranks higher), then UserID.
type Snapshot struct {
	Category Category `json:"category"`
	Entries  []Entry  `json:"entries"`
}

// Clone returns a deep copy so callers can never mutate shared board state.
func (s Snapshot) Clone() Snapshot {
	cp := Snapshot{Category: s.Category, Entries: make([]Entry, len(s.Entries))}
	copy(cp.Entries, s.Entries)
	return cp
}

// Equal reports whether two snapshots carry the same members, in the same
// order, with the same scores. Timestamps are ignored so that re-reading an
// unchanged board never looks like a change.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Category != o.Category || len(s.Entries) != len(o.Entries) {
		return false
	}
	for i := range s.Entries {
		if s.Entries[i].User != o.Entries[i].User || s.Entries[i].Score != o.Entries[i].Score {
			return false
		}
	}
	return true
}

// Less is the single ranking comparator shared by the board, the ledger
// top-N queries and the synchronizer, so the tie-break rule is reproducible
// everywhere.
func Less(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
	return a.User < b.User
}

// NormalizeUserID trims and lowercases user identifiers and verifies the
// charset, so identifiers can safely appear in storage keys and token
// payloads.
func NormalizeUserID(id UserID) (UserID, error) {
	s, err := normalizeIdent(string(id), "user id")
	if err != nil {
		return "", err
	}
	return UserID(s), nil
}

// NormalizeCategory applies the same rules to category names.
func NormalizeCategory(c Category) (Category, error) {
	s, err := normalizeIdent(string(c), "category")
	if err != nil {
		return "", err
	}
	return Category(s), nil
}

// normalizeIdent allows alnum, dash, underscore and dot.
func normalizeIdent(s, what string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalidf("empty %s", what)
	}
	s = strings.ToLower(s)
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", invalidf("invalid %s", what)
	}
	return s, nil
}
