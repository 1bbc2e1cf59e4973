// Package scores is the batteries-included entry point: it assembles a
// Coordinator from sensible defaults so library users can submit scores
// without wiring adapters by hand.
package scores

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"scorekit/adapters/memory"
	"scorekit/engine"
	"scorekit/leaderboard"
	"scorekit/realtime"
	"scorekit/token"
)

// Option configures the service builder.
type Option func(*options)

type options struct {
	ledger engine.Ledger
	tokens engine.TokenService
	secret []byte
	ttl    time.Duration
	board  leaderboard.Board
	size   int
	hub    *realtime.Hub
	mode   engine.DispatchMode
	limits engine.Limits
	logger *slog.Logger
}

// WithLedger sets the durable score ledger.
func WithLedger(l engine.Ledger) Option { return func(o *options) { o.ledger = l } }

// WithTokens sets a fully built token service.
func WithTokens(t engine.TokenService) Option { return func(o *options) { o.tokens = t } }

// WithSecret sets the token signing key used when no token service is given.
func WithSecret(key []byte) Option { return func(o *options) { o.secret = key } }

// WithTokenTTL sets the action token lifetime used when no token service is given.
func WithTokenTTL(ttl time.Duration) Option { return func(o *options) { o.ttl = ttl } }

// WithBoard sets the in-memory leaderboard.
func WithBoard(b leaderboard.Board) Option { return func(o *options) { o.board = b } }

// WithBoardSize sets the top-N size used when no board is given.
func WithBoardSize(n int) Option { return func(o *options) { o.size = n } }

// WithRealtime wires a hub to receive snapshot broadcasts.
func WithRealtime(h *realtime.Hub) Option { return func(o *options) { o.hub = h } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(o *options) { o.mode = m } }

// WithLimits bounds the per-update delta.
func WithLimits(l engine.Limits) Option { return func(o *options) { o.limits = l } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New builds a ready-to-use Coordinator. Defaults when not overridden:
//   - ledger: in-memory
//   - tokens: HMAC service with a random per-process key and in-memory store
//   - board:  top-10
//   - dispatch: async
//
// A random key means tokens do not survive restart. Production deployments
// should pass WithSecret or WithTokens.
func New(opts ...Option) (*engine.Coordinator, error) {
	o := &options{
		mode:   engine.DispatchAsync,
		limits: engine.DefaultLimits(),
		size:   leaderboard.DefaultSize,
		ttl:    token.DefaultTTL,
	}
	for _, fn := range opts {
		fn(o)
	}

	if o.ledger == nil {
		o.ledger = memory.NewLedger(0)
	}
	if o.board == nil {
		o.board = leaderboard.NewTopN(o.size)
	}
	if o.tokens == nil {
		key := o.secret
		if len(key) == 0 {
			key = make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return nil, fmt.Errorf("generate token key: %w", err)
			}
		}
		store := memory.NewTokens(time.Minute)
		svc, err := token.NewService(key, store, token.WithTTL(o.ttl))
		if err != nil {
			return nil, fmt.Errorf("build token service: %w", err)
		}
		o.tokens = svc
	}

	var caster engine.Broadcaster
	if o.hub != nil {
		caster = o.hub
	}
	bus := engine.NewEventBus(o.mode)
	return engine.NewCoordinator(o.ledger, o.tokens, o.board, caster, bus, o.limits, o.logger), nil
}
