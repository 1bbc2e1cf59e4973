package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scorekit/core"
	"scorekit/leaderboard"
)

// Limits bounds what a single update may do.
type Limits struct {
	// MaxDelta is the largest increment one token may authorize.
	MaxDelta int64
}

// DefaultLimits mirror the reference configuration.
func DefaultLimits() Limits { return Limits{MaxDelta: 10_000} }

// RetryPolicy bounds the internal retry of transient ledger failures.
type RetryPolicy struct {
	Attempts int
	BaseWait time.Duration
}

// DefaultRetryPolicy retries twice more after the first failure, waiting
// 50ms then 100ms.
func DefaultRetryPolicy() RetryPolicy { return RetryPolicy{Attempts: 3, BaseWait: 50 * time.Millisecond} }

// Coordinator orchestrates one score update end to end: token consumption,
// durable ledger write, fast-path board update, and the broadcast decision.
type Coordinator struct {
	ledger Ledger
	tokens TokenService
	board  leaderboard.Board
	caster Broadcaster
	bus    *EventBus
	limits Limits
	retry  RetryPolicy
	logger *slog.Logger
}

// NewCoordinator wires the update path. ledger, tokens and board are
// required; caster and bus may be nil when nobody listens.
func NewCoordinator(ledger Ledger, tokens TokenService, board leaderboard.Board, caster Broadcaster, bus *EventBus, limits Limits, logger *slog.Logger) *Coordinator {
	if ledger == nil || tokens == nil || board == nil {
		panic("NewCoordinator requires non-nil ledger, tokens, and board")
	}
	if limits.MaxDelta <= 0 {
		limits = DefaultLimits()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		ledger: ledger,
		tokens: tokens,
		board:  board,
		caster: caster,
		bus:    bus,
		limits: limits,
		retry:  DefaultRetryPolicy(),
		logger: logger,
	}
}

// SetRetryPolicy overrides the transient-failure retry budget.
func (c *Coordinator) SetRetryPolicy(p RetryPolicy) {
	if p.Attempts > 0 {
		c.retry = p
	}
}

// IssueToken normalizes identifiers and issues a fresh action token.
func (c *Coordinator) IssueToken(ctx context.Context, user core.UserID, category core.Category) (string, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return "", err
	}
	category, err = core.NormalizeCategory(category)
	if err != nil {
		return "", err
	}
	tok, err := c.tokens.Issue(ctx, user, category)
	if err != nil {
		return "", err
	}
	c.publish(ctx, core.NewTokenIssued(user, category, ""))
	return tok, nil
}

// SubmitScore runs the per-request state machine. The token is consumed
// before any durable write, so a rejected request is always safe to retry
// with a fresh token; once the ledger commits, the update is final even if
// broadcasting fails.
func (c *Coordinator) SubmitScore(ctx context.Context, user core.UserID, category core.Category, token string, delta int64) (int64, error) {
	// RECEIVED
	if delta <= 0 {
		return 0, core.WrapInvalid("delta must be positive")
	}
	if delta > c.limits.MaxDelta {
		return 0, core.WrapInvalid("delta exceeds per-update maximum")
	}
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return 0, err
	}
	category, err = core.NormalizeCategory(category)
	if err != nil {
		return 0, err
	}

	// TOKEN_VALIDATED: no ledger mutation has happened yet.
	tokenID, err := c.tokens.Consume(ctx, token, user, category)
	if err != nil {
		return 0, err
	}

	// LEDGER_APPLIED: the consumed token is not refunded on failure.
	var entry core.Entry
	err = c.withRetry(ctx, func() error {
		var applyErr error
		entry, applyErr = c.ledger.ApplyDelta(ctx, user, category, delta, tokenID)
		return applyErr
	})
	if err != nil {
		if errors.Is(err, core.ErrStorageUnavailable) {
			c.logger.Error("ledger write failed after retries",
				"user", user, "category", category, "error", err)
		}
		return 0, err
	}

	// LEADERBOARD_RECONCILED
	pre := c.board.Snapshot(category)
	c.board.Upsert(category, entry)
	post := c.board.Snapshot(category)

	// BROADCAST_DECIDED: fire and forget, a slow subscriber never stalls us.
	if !pre.Equal(post) {
		if c.caster != nil {
			c.caster.Publish(ctx, category, post)
		}
		c.publish(ctx, core.NewLeaderboardChanged(post))
	}
	c.publish(ctx, core.NewScoreApplied(user, category, delta, entry.Score, tokenID))

	// DONE
	return entry.Score, nil
}

// Leaderboard serves reads from the fast-path board, never the ledger.
func (c *Coordinator) Leaderboard(category core.Category) (core.Snapshot, error) {
	category, err := core.NormalizeCategory(category)
	if err != nil {
		return core.Snapshot{}, err
	}
	return c.board.Snapshot(category), nil
}

// Score reads the authoritative current score for one user.
func (c *Coordinator) Score(ctx context.Context, user core.UserID, category core.Category) (int64, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return 0, err
	}
	category, err = core.NormalizeCategory(category)
	if err != nil {
		return 0, err
	}
	return c.ledger.Score(ctx, user, category)
}

// withRetry retries fn on ErrStorageUnavailable with exponential backoff.
// Conflicts and validation failures surface immediately.
func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	wait := c.retry.BaseWait
	var err error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return core.WrapStorage(ctx.Err())
			}
			wait *= 2
		}
		err = fn()
		if err == nil || !errors.Is(err, core.ErrStorageUnavailable) {
			return err
		}
	}
	return err
}

func (c *Coordinator) publish(ctx context.Context, ev core.Event) {
	if c.bus != nil {
		c.bus.Publish(ctx, ev)
	}
}

// Subscribe is a convenience passthrough to the event bus.
func (c *Coordinator) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	if c.bus == nil {
		return func() {}
	}
	return c.bus.Subscribe(typ, handler)
}

// Close releases bus workers.
func (c *Coordinator) Close() {
	if c.bus != nil {
		c.bus.Close()
	}
}
