package scores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"scorekit/adapters/memory"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/leaderboard"
	"scorekit/realtime"
	"scorekit/scores"
)

func TestNewDefaults(t *testing.T) {
	svc, err := scores.New()
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	tok, err := svc.IssueToken(ctx, "alice", "global")
	require.NoError(t, err)

	score, err := svc.SubmitScore(ctx, "alice", "global", tok, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), score)

	snap, err := svc.Leaderboard("global")
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	require.Equal(t, core.UserID("alice"), snap.Entries[0].User)
}

func TestNewWithExplicitParts(t *testing.T) {
	board := leaderboard.NewTopN(2)
	hub := realtime.NewHub(board)
	ledger := memory.NewLedger(100)

	svc, err := scores.New(
		scores.WithLedger(ledger),
		scores.WithBoard(board),
		scores.WithRealtime(hub),
		scores.WithSecret([]byte("fixed-key-for-tests-0123456789ab")),
		scores.WithDispatchMode(engine.DispatchSync),
		scores.WithLimits(engine.Limits{MaxDelta: 10}),
	)
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	tok, err := svc.IssueToken(ctx, "bob", "global")
	require.NoError(t, err)

	// Delta above the configured limit is rejected up front.
	_, err = svc.SubmitScore(ctx, "bob", "global", tok, 50)
	require.ErrorIs(t, err, core.ErrInvalidRequest)

	sub := hub.Subscribe("global", 4)
	defer hub.Unsubscribe(sub)
	<-sub.C // initial snapshot

	_, err = svc.SubmitScore(ctx, "bob", "global", tok, 7)
	require.NoError(t, err)

	snap := <-sub.C
	require.Len(t, snap.Entries, 1)
	require.Equal(t, int64(7), snap.Entries[0].Score)
}

func TestRandomKeysAreIndependent(t *testing.T) {
	a, err := scores.New()
	require.NoError(t, err)
	defer a.Close()
	b, err := scores.New()
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	tok, err := a.IssueToken(ctx, "carol", "global")
	require.NoError(t, err)

	// A token minted by one service is garbage to another.
	_, err = b.SubmitScore(ctx, "carol", "global", tok, 1)
	require.ErrorIs(t, err, core.ErrForbidden)
}
