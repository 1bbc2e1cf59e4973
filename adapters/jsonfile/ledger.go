package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"scorekit/adapters/memory"
	"scorekit/core"
)

// Ledger persists scores and the audit trail to a single JSON file.
// Suitable for demos and small deployments; every committed update is
// flushed with an atomic tmp+rename so a crash never leaves a torn file.
type Ledger struct {
	path     string
	maxScore int64
	mu       sync.Mutex
	data     fileData
}

type fileData struct {
	Scores map[core.Category]map[core.UserID]scoreRow `json:"scores"`
	Audit  []memory.AuditEntry                        `json:"audit"`
}

type scoreRow struct {
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New opens (or creates) a file-backed ledger with the given score cap.
func New(path string, maxScore int64) (*Ledger, error) {
	if maxScore <= 0 {
		maxScore = memory.DefaultMaxScore
	}
	l := &Ledger{
		path:     path,
		maxScore: maxScore,
		data:     fileData{Scores: map[core.Category]map[core.UserID]scoreRow{}},
	}
	if err := l.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) load() error {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	var raw fileData
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Scores == nil {
		raw.Scores = map[core.Category]map[core.UserID]scoreRow{}
	}
	l.data = raw
	return nil
}

func (l *Ledger) persist() error {
	tmp := l.path + ".tmp"
	b, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

func (l *Ledger) Score(_ context.Context, user core.UserID, category core.Category) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rows, ok := l.data.Scores[category]; ok {
		return rows[user].Score, nil
	}
	return 0, nil
}

// ApplyDelta holds the file mutex across read, validate, write and persist,
// so the score update and the audit append land in the file together or not
// at all.
func (l *Ledger) ApplyDelta(_ context.Context, user core.UserID, category core.Category, delta int64, tokenID string) (core.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := l.data.Scores[category]
	if rows == nil {
		rows = map[core.UserID]scoreRow{}
		l.data.Scores[category] = rows
	}
	prev, existed := rows[user]
	old := prev.Score
	next := old + delta
	if next < 0 {
		return core.Entry{}, core.WrapConflict("score would become negative")
	}
	if next > l.maxScore {
		return core.Entry{}, core.WrapConflict("score would exceed cap")
	}

	now := time.Now().UTC()
	rows[user] = scoreRow{Score: next, UpdatedAt: now}
	l.data.Audit = append(l.data.Audit, memory.AuditEntry{
		User: user, Category: category,
		OldScore: old, NewScore: next,
		TokenID: tokenID, At: now,
	})

	if err := l.persist(); err != nil {
		// Restore the exact prior state so memory and disk stay in step: a
		// user who never existed must not linger as a zero-score row, and an
		// existing user keeps the pre-update timestamp.
		if existed {
			rows[user] = prev
		} else {
			delete(rows, user)
			if len(rows) == 0 {
				delete(l.data.Scores, category)
			}
		}
		l.data.Audit = l.data.Audit[:len(l.data.Audit)-1]
		return core.Entry{}, core.WrapStorage(err)
	}
	return core.Entry{User: user, Score: next, UpdatedAt: now}, nil
}

func (l *Ledger) TopN(_ context.Context, category core.Category, n int) ([]core.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.data.Scores[category]
	entries := make([]core.Entry, 0, len(rows))
	for user, row := range rows {
		entries = append(entries, core.Entry{User: user, Score: row.Score, UpdatedAt: row.UpdatedAt})
	}
	sort.SliceStable(entries, func(i, j int) bool { return core.Less(entries[i], entries[j]) })
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (l *Ledger) Categories(_ context.Context) ([]core.Category, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Category, 0, len(l.data.Scores))
	for c := range l.data.Scores {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// AuditTrail returns a copy of the recorded updates.
func (l *Ledger) AuditTrail() []memory.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]memory.AuditEntry, len(l.data.Audit))
	copy(out, l.data.Audit)
	return out
}
