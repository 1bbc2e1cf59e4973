package engine

import (
	"context"

	"scorekit/core"
)

// Ledger abstracts the authoritative, crash-durable score store.
type Ledger interface {
	// Score returns the user's current score, 0 if the user has never scored
	// in the category.
	Score(ctx context.Context, user core.UserID, category core.Category) (int64, error)
	// ApplyDelta persists the new score and appends an audit entry as one
	// transaction. Fails with core.ErrConflict on a negative result or cap
	// overflow; concurrent calls for the same (user, category) serialize.
	ApplyDelta(ctx context.Context, user core.UserID, category core.Category, delta int64, tokenID string) (core.Entry, error)
	// TopN is the authoritative slow-path ranking query; never used on the
	// request hot path.
	TopN(ctx context.Context, category core.Category, n int) ([]core.Entry, error)
	// Categories lists every category with at least one score.
	Categories(ctx context.Context) ([]core.Category, error)
}

// TokenService abstracts issuance and single-use consumption of action
// tokens.
type TokenService interface {
	Issue(ctx context.Context, user core.UserID, category core.Category) (string, error)
	// Consume burns the token atomically, returning its id for the audit
	// trail, or core.ErrForbidden.
	Consume(ctx context.Context, token string, user core.UserID, category core.Category) (string, error)
}

// Broadcaster receives the new top-N whenever it actually changed.
type Broadcaster interface {
	Publish(ctx context.Context, category core.Category, snap core.Snapshot)
}
