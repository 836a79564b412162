package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"totopool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestTeams(n int) []*entities.Team {
	teams := make([]*entities.Team, 0, n)
	for i := 1; i <= n; i++ {
		teams = append(teams, &entities.Team{ID: int64(i), Name: fmt.Sprintf("Team %d", i), IsActive: true})
	}
	return teams
}

func newTestScheduler(mocks *TestMocks, lookahead, matchesPerRound int) *roundScheduler {
	s := NewRoundScheduler(mocks.RoundRepo, mocks.MatchRepo, mocks.TeamRepo, lookahead, matchesPerRound).(*roundScheduler)
	s.shuffle = func(int, func(i, j int)) {}
	return s
}

func TestRoundScheduler_EnsureLookahead(t *testing.T) {
	t.Parallel()

	t.Run("fills missing rounds", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		scheduler := newTestScheduler(mocks, 3, 2)

		nextID := int64(10)
		mocks.RoundRepo.On("CountUnfinished", ctx).Return(1, nil)
		mocks.TeamRepo.On("GetActive", ctx).Return(createTestTeams(4), nil)
		mocks.RoundRepo.On("Create", ctx, mock.MatchedBy(func(r *entities.Round) bool {
			return r.Status == entities.RoundStatusWaiting && r.LivePool.IsZero()
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Round).ID = nextID
			nextID++
		}).Return(nil).Twice()

		var batches [][]*entities.Match
		mocks.MatchRepo.On("CreateBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
			batches = append(batches, args.Get(1).([]*entities.Match))
		}).Return(nil).Twice()

		created, err := scheduler.EnsureLookahead(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, created)
		require.Len(t, batches, 2)
		assert.Equal(t, int64(10), batches[0][0].RoundID)
		assert.Equal(t, int64(11), batches[1][0].RoundID)
		for _, batch := range batches {
			require.Len(t, batch, 2)
			assert.Equal(t, int64(1), batch[0].Team1ID)
			assert.Equal(t, int64(2), batch[0].Team2ID)
			assert.Equal(t, int64(3), batch[1].Team1ID)
			assert.Equal(t, int64(4), batch[1].Team2ID)
		}
		mocks.AssertAllExpectations(t)
	})

	t.Run("lookahead already full", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		scheduler := newTestScheduler(mocks, 3, 2)

		mocks.RoundRepo.On("CountUnfinished", ctx).Return(3, nil)

		created, err := scheduler.EnsureLookahead(ctx)

		require.NoError(t, err)
		assert.Zero(t, created)
		mocks.TeamRepo.AssertNotCalled(t, "GetActive", mock.Anything)
	})

	t.Run("not enough teams", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		scheduler := newTestScheduler(mocks, 3, 2)

		mocks.RoundRepo.On("CountUnfinished", ctx).Return(0, nil)
		mocks.TeamRepo.On("GetActive", ctx).Return(createTestTeams(3), nil)

		_, err := scheduler.EnsureLookahead(ctx)

		assert.True(t, errors.Is(err, entities.ErrNotEnoughTeams))
		mocks.RoundRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stops on match insert failure", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		scheduler := newTestScheduler(mocks, 2, 2)

		mocks.RoundRepo.On("CountUnfinished", ctx).Return(0, nil)
		mocks.TeamRepo.On("GetActive", ctx).Return(createTestTeams(4), nil)
		mocks.RoundRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		mocks.MatchRepo.On("CreateBatch", ctx, mock.Anything).Return(errors.New("db down")).Once()

		created, err := scheduler.EnsureLookahead(ctx)

		assert.Error(t, err)
		assert.Zero(t, created)
		mocks.AssertAllExpectations(t)
	})
}

func TestRoundScheduler_PairTeamsUsesEachTeamOnce(t *testing.T) {
	t.Parallel()

	scheduler := NewRoundScheduler(nil, nil, nil, 1, 10).(*roundScheduler)

	matches := scheduler.pairTeams(1, createTestTeams(24))

	require.Len(t, matches, 10)
	seen := make(map[int64]bool)
	for _, m := range matches {
		assert.NotEqual(t, m.Team1ID, m.Team2ID)
		assert.False(t, seen[m.Team1ID])
		assert.False(t, seen[m.Team2ID])
		seen[m.Team1ID] = true
		seen[m.Team2ID] = true
	}
}
