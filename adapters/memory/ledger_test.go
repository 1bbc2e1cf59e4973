package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekit/core"
)

func TestLedgerApplyDelta(t *testing.T) {
	l := NewLedger(0)
	ctx := context.Background()

	e, err := l.ApplyDelta(ctx, "alice", "global", 50, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), e.Score)

	e, err = l.ApplyDelta(ctx, "alice", "global", 25, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, int64(75), e.Score)

	score, err := l.Score(ctx, "alice", "global")
	require.NoError(t, err)
	assert.Equal(t, int64(75), score)
}

func TestLedgerScoreAbsentIsZero(t *testing.T) {
	l := NewLedger(0)
	score, err := l.Score(context.Background(), "nobody", "global")
	require.NoError(t, err)
	assert.Equal(t, int64(0), score)
}

func TestLedgerRejectsNegativeResult(t *testing.T) {
	l := NewLedger(0)
	ctx := context.Background()

	_, err := l.ApplyDelta(ctx, "alice", "global", 10, "tok-1")
	require.NoError(t, err)

	_, err = l.ApplyDelta(ctx, "alice", "global", -20, "tok-2")
	assert.ErrorIs(t, err, core.ErrConflict)

	score, err := l.Score(ctx, "alice", "global")
	require.NoError(t, err)
	assert.Equal(t, int64(10), score, "failed delta must leave the score unchanged")
}

func TestLedgerEnforcesCap(t *testing.T) {
	l := NewLedger(100)
	ctx := context.Background()

	_, err := l.ApplyDelta(ctx, "alice", "global", 90, "tok-1")
	require.NoError(t, err)

	_, err = l.ApplyDelta(ctx, "alice", "global", 50, "tok-2")
	assert.ErrorIs(t, err, core.ErrConflict)

	score, err := l.Score(ctx, "alice", "global")
	require.NoError(t, err)
	assert.Equal(t, int64(90), score)
}

func TestLedgerNoLostUpdates(t *testing.T) {
	l := NewLedger(0)
	ctx := context.Background()

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := l.ApplyDelta(ctx, "alice", "global", 1, "tok")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	score, err := l.Score(ctx, "alice", "global")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), score)
	assert.Len(t, l.AuditTrail(), workers*perWorker)
}

func TestLedgerTopNOrdering(t *testing.T) {
	l := NewLedger(0)
	ctx := context.Background()

	_, err := l.ApplyDelta(ctx, "a", "global", 10, "t1")
	require.NoError(t, err)
	_, err = l.ApplyDelta(ctx, "b", "global", 30, "t2")
	require.NoError(t, err)
	_, err = l.ApplyDelta(ctx, "c", "global", 20, "t3")
	require.NoError(t, err)
	_, err = l.ApplyDelta(ctx, "d", "weekly", 99, "t4")
	require.NoError(t, err)

	top, err := l.TopN(ctx, "global", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, core.UserID("b"), top[0].User)
	assert.Equal(t, core.UserID("c"), top[1].User)

	cats, err := l.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{"global", "weekly"}, cats)
}

func TestLedgerAuditTrail(t *testing.T) {
	l := NewLedger(0)
	ctx := context.Background()

	_, err := l.ApplyDelta(ctx, "alice", "global", 50, "tok-1")
	require.NoError(t, err)
	_, err = l.ApplyDelta(ctx, "alice", "global", 20, "tok-2")
	require.NoError(t, err)

	trail := l.AuditTrail()
	require.Len(t, trail, 2)
	assert.Equal(t, int64(0), trail[0].OldScore)
	assert.Equal(t, int64(50), trail[0].NewScore)
	assert.Equal(t, "tok-1", trail[0].TokenID)
	assert.Equal(t, int64(50), trail[1].OldScore)
	assert.Equal(t, int64(70), trail[1].NewScore)
}
