package engine

import (
	"context"
	"log/slog"
	"time"

	"scorekit/core"
	"scorekit/leaderboard"
)

// DefaultSyncInterval is how often the periodic reconciliation pass runs.
const DefaultSyncInterval = 5 * time.Minute

// Synchronizer keeps the fast-path board converging toward the ledger. It
// rebuilds the board on startup and repairs drift on a timer; it is the only
// writer allowed to Replace board contents wholesale.
type Synchronizer struct {
	ledger   Ledger
	board    leaderboard.Board
	size     int
	interval time.Duration
	bus      *EventBus
	logger   *slog.Logger
}

// NewSynchronizer wires a reconciliation engine for boards of the given
// size. bus may be nil.
func NewSynchronizer(ledger Ledger, board leaderboard.Board, size int, interval time.Duration, bus *EventBus, logger *slog.Logger) *Synchronizer {
	if ledger == nil || board == nil {
		panic("NewSynchronizer requires non-nil ledger and board")
	}
	if size < 1 {
		size = leaderboard.DefaultSize
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{ledger: ledger, board: board, size: size, interval: interval, bus: bus, logger: logger}
}

// Rebuild replaces every known category's board contents from the ledger.
// Run it to completion before serving traffic; a category that only appears
// later simply serves an empty top-N until the next reconciliation.
func (s *Synchronizer) Rebuild(ctx context.Context) error {
	cats, err := s.ledger.Categories(ctx)
	if err != nil {
		return err
	}
	for _, category := range cats {
		entries, err := s.ledger.TopN(ctx, category, s.size)
		if err != nil {
			return err
		}
		s.board.Replace(category, entries)
	}
	s.logger.Info("leaderboard rebuilt from ledger", "categories", len(cats))
	return nil
}

// Reconcile repairs one category, returning how many users the repair added
// to and removed from the board. A nil repair (no drift) touches nothing.
func (s *Synchronizer) Reconcile(ctx context.Context, category core.Category) (added, removed int, err error) {
	authoritative, err := s.ledger.TopN(ctx, category, s.size)
	if err != nil {
		return 0, 0, err
	}
	current := s.board.Snapshot(category)

	want := make(map[core.UserID]struct{}, len(authoritative))
	for _, e := range authoritative {
		want[e.User] = struct{}{}
	}
	have := make(map[core.UserID]struct{}, len(current.Entries))
	for _, e := range current.Entries {
		have[e.User] = struct{}{}
	}
	for u := range want {
		if _, ok := have[u]; !ok {
			added++
		}
	}
	for u := range have {
		if _, ok := want[u]; !ok {
			removed++
		}
	}

	if added == 0 && removed == 0 && current.Equal(core.Snapshot{Category: category, Entries: authoritative}) {
		return 0, 0, nil
	}

	s.board.Replace(category, authoritative)
	s.logger.Warn("leaderboard drift repaired",
		"category", category, "added", added, "removed", removed)
	if s.bus != nil {
		s.bus.Publish(ctx, core.NewDriftRepaired(category, added, removed))
	}
	return added, removed, nil
}

// ReconcileAll runs Reconcile over the union of ledger and board categories,
// so phantom categories that exist only in the board are also repaired.
func (s *Synchronizer) ReconcileAll(ctx context.Context) error {
	fromLedger, err := s.ledger.Categories(ctx)
	if err != nil {
		return err
	}
	seen := make(map[core.Category]struct{}, len(fromLedger))
	for _, c := range fromLedger {
		seen[c] = struct{}{}
	}
	for _, c := range s.board.Categories() {
		seen[c] = struct{}{}
	}
	for category := range seen {
		if _, _, err := s.Reconcile(ctx, category); err != nil {
			s.logger.Error("reconciliation failed", "category", category, "error", err)
		}
	}
	return nil
}

// Run executes the periodic reconciliation loop until ctx is cancelled. It
// never holds a lock across categories; each repair swaps one category's
// contents only.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.ReconcileAll(ctx); err != nil {
				s.logger.Error("reconciliation pass failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
