package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventScoreApplied       EventType = "score_applied"
	EventLeaderboardChanged EventType = "leaderboard_changed"
	EventDriftRepaired      EventType = "drift_repaired"
	EventTokenIssued        EventType = "token_issued"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType `json:"type"`
	Time     time.Time `json:"time"`
	Category Category  `json:"category,omitempty"`
	UserID   UserID    `json:"user_id,omitempty"`
	Delta    int64     `json:"delta,omitempty"`
	Score    int64     `json:"score,omitempty"`
	TokenID  string    `json:"token_id,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Added    int       `json:"added,omitempty"`
	Removed  int       `json:"removed,omitempty"`
}

func NewScoreApplied(user UserID, category Category, delta, score int64, tokenID string) Event {
	return Event{Type: EventScoreApplied, Time: time.Now().UTC(), UserID: user, Category: category, Delta: delta, Score: score, TokenID: tokenID}
}

func NewLeaderboardChanged(snapshot Snapshot) Event {
	cp := snapshot.Clone()
	return Event{Type: EventLeaderboardChanged, Time: time.Now().UTC(), Category: snapshot.Category, Snapshot: &cp}
}

func NewDriftRepaired(category Category, added, removed int) Event {
	return Event{Type: EventDriftRepaired, Time: time.Now().UTC(), Category: category, Added: added, Removed: removed}
}

func NewTokenIssued(user UserID, category Category, tokenID string) Event {
	return Event{Type: EventTokenIssued, Time: time.Now().UTC(), UserID: user, Category: category, TokenID: tokenID}
}
