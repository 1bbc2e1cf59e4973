package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"scorekit/adapters/jsonfile"
	mem "scorekit/adapters/memory"
	redisAdapter "scorekit/adapters/redis"
	sqlxAdapter "scorekit/adapters/sqlx"
	"scorekit/api/httpapi"
	"scorekit/config"
	"scorekit/engine"
	"scorekit/leaderboard"
	"scorekit/realtime"
	"scorekit/token"
)

// App aggregates the assembled server components.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Board        leaderboard.Board
	Hub          *realtime.Hub
	Ledger       engine.Ledger
	Coordinator  *engine.Coordinator
	Synchronizer *engine.Synchronizer
	Handler      http.Handler
	Server       *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	_ = ctx
	if path := os.Getenv("SCOREKIT_CONFIG"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideBoard(cfg *config.Config) leaderboard.Board {
	return leaderboard.NewTopN(cfg.Leaderboard.Size)
}

func provideHub(board leaderboard.Board) *realtime.Hub {
	return realtime.NewHub(board)
}

func provideLedger(ctx context.Context, cfg *config.Config) (engine.Ledger, error) {
	return setupLedger(ctx, cfg)
}

func provideTokenService(cfg *config.Config) (engine.TokenService, error) {
	return setupTokens(cfg)
}

func provideCoordinator(cfg *config.Config, ledger engine.Ledger, tokens engine.TokenService, board leaderboard.Board, hub *realtime.Hub, logger *slog.Logger) *engine.Coordinator {
	bus := engine.NewEventBus(engine.DispatchAsync)
	limits := engine.Limits{MaxDelta: cfg.Leaderboard.MaxDelta}
	return engine.NewCoordinator(ledger, tokens, board, hub, bus, limits, logger)
}

func provideSynchronizer(cfg *config.Config, ledger engine.Ledger, board leaderboard.Board, logger *slog.Logger) *engine.Synchronizer {
	return engine.NewSynchronizer(ledger, board, cfg.Leaderboard.Size, cfg.Sync.Interval, nil, logger)
}

func provideHandler(coord *engine.Coordinator, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(coord, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var out *os.File
	switch cfg.Logging.Output {
	case "stderr":
		out = os.Stderr
	default:
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupLedger creates the ledger adapter named by configuration.
func setupLedger(ctx context.Context, cfg *config.Config) (engine.Ledger, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.NewLedger(cfg.Leaderboard.MaxScore), nil
	case "file":
		return jsonfile.New(cfg.Storage.File.Path, cfg.Leaderboard.MaxScore)
	case "sql":
		ledger, err := sqlxAdapter.New(cfg.Storage.SQL, cfg.Leaderboard.MaxScore)
		if err != nil {
			return nil, err
		}
		if err := ledger.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate ledger schema: %w", err)
		}
		return ledger, nil
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

// setupTokens builds the token service over the configured consumed-state store.
func setupTokens(cfg *config.Config) (engine.TokenService, error) {
	var store token.Store
	switch cfg.Tokens.Store {
	case "memory":
		store = mem.NewTokens(time.Minute)
	case "redis":
		redisStore, err := redisAdapter.NewTokens(cfg.Tokens.Redis)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, fmt.Errorf("unknown token store: %s", cfg.Tokens.Store)
	}

	secret := []byte(cfg.Tokens.Secret)
	if len(secret) == 0 {
		// Development fallback; validation rejects this outside dev.
		secret = []byte("scorekit-dev-only-signing-key")
	}
	return token.NewService(secret, store,
		token.WithTTL(cfg.Tokens.TTL),
		token.WithRetention(cfg.Tokens.Retention),
	)
}
