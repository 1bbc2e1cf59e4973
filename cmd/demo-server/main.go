package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"scorekit/api/httpapi"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/leaderboard"
	"scorekit/realtime"
	"scorekit/scores"
)

// A self-contained in-memory playground: ephemeral ledger, random signing
// key, text logs. Nothing survives restart.
func main() {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(textHandler))

	board := leaderboard.NewTopN(leaderboard.DefaultSize)
	hub := realtime.NewHub(board)

	svc, err := scores.New(
		scores.WithBoard(board),
		scores.WithRealtime(hub),
		scores.WithDispatchMode(engine.DispatchSync),
	)
	if err != nil {
		slog.Error("demo setup failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	svc.Subscribe(core.EventScoreApplied, func(_ context.Context, e core.Event) {
		slog.Info("score applied", "user", e.UserID, "category", e.Category, "delta", e.Delta, "score", e.Score)
	})

	handler := httpapi.NewMux(svc, hub, httpapi.Options{AllowCORSOrigin: "*"})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
