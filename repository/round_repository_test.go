package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"totopool/domain/entities"
	"totopool/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	round := &entities.Round{Status: entities.RoundStatusWaiting, LivePool: decimal.Zero}
	require.NoError(t, repo.Create(ctx, round))
	require.NotZero(t, round.ID)

	t.Run("oldest waiting", func(t *testing.T) {
		oldest, err := repo.GetOldestByStatus(ctx, entities.RoundStatusWaiting)
		require.NoError(t, err)
		require.NotNil(t, oldest)
		assert.Equal(t, round.ID, oldest.ID)

		count, err := repo.CountUnfinished(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("betting refused before selection", func(t *testing.T) {
		_, err := repo.IncrementLivePool(ctx, round.ID, decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, entities.ErrRoundNotAcceptingBets))
	})

	start := time.Now().UTC().Truncate(time.Microsecond)
	end := start.Add(3 * time.Minute)

	t.Run("open selection once", func(t *testing.T) {
		ok, err := repo.OpenSelection(ctx, round.ID, start, end)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.OpenSelection(ctx, round.ID, start, end)
		require.NoError(t, err)
		assert.False(t, ok)

		current, err := repo.GetCurrent(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, entities.RoundStatusSelection, current.Status)
		assert.True(t, end.Equal(*current.SelectionEndTime))

		next, err := repo.GetNextSelectionEnd(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.True(t, end.Equal(*next))
	})

	t.Run("pool grows during selection", func(t *testing.T) {
		pool, err := repo.IncrementLivePool(ctx, round.ID, decimal.RequireFromString("2.50"))
		require.NoError(t, err)
		assert.Equal(t, "2.5", pool.String())

		pool, err = repo.IncrementLivePool(ctx, round.ID, decimal.RequireFromString("0.75"))
		require.NoError(t, err)
		assert.Equal(t, "3.25", pool.String())
	})

	t.Run("transition is compare and set", func(t *testing.T) {
		ok, err := repo.TransitionStatus(ctx, round.ID, entities.RoundStatusSelection, entities.RoundStatusCalculation)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.TransitionStatus(ctx, round.ID, entities.RoundStatusSelection, entities.RoundStatusCalculation)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.IncrementLivePool(ctx, round.ID, decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, entities.ErrRoundNotAcceptingBets))
	})

	t.Run("finish only from payout", func(t *testing.T) {
		ok, err := repo.Finish(ctx, round.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.TransitionStatus(ctx, round.ID, entities.RoundStatusCalculation, entities.RoundStatusPayout)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.Finish(ctx, round.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		finished, err := repo.ListFinished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, finished, 1)
		assert.Equal(t, round.ID, finished[0].ID)
		assert.NotNil(t, finished[0].EndTime)
		assert.Equal(t, "3.25", finished[0].LivePool.String())
	})
}

func TestMatchRepository_SetResults(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMatchRepository(testDB.DB)
	ctx := context.Background()
	seeded := testutil.CreateTestRound(t, testDB.DB, entities.RoundStatusCalculation, 3)

	matches, err := repo.GetByRound(ctx, seeded.Round.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.NotEmpty(t, matches[0].Team1Name)
	assert.Nil(t, matches[0].Result)

	results := map[int64]entities.Outcome{
		seeded.MatchIDs[0]: entities.OutcomeWin1,
		seeded.MatchIDs[1]: entities.OutcomeDraw,
		seeded.MatchIDs[2]: entities.OutcomeWin2,
	}

	written, err := repo.SetResults(ctx, seeded.Round.ID, results)
	require.NoError(t, err)
	assert.Equal(t, int64(3), written)

	// results are written once
	written, err = repo.SetResults(ctx, seeded.Round.ID, map[int64]entities.Outcome{
		seeded.MatchIDs[0]: entities.OutcomeWin2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), written)

	matches, err = repo.GetByRound(ctx, seeded.Round.ID)
	require.NoError(t, err)
	for _, m := range matches {
		require.NotNil(t, m.Result)
		assert.Equal(t, results[m.ID], *m.Result)
	}
}
