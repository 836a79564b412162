package services

import (
	"context"
	"errors"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMatchResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("writes every result in one batch", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo := new(testhelpers.MockRoundRepository)
		matchRepo := new(testhelpers.MockMatchRepository)
		resolver := NewMatchResolver(roundRepo, matchRepo)

		outcomes := []entities.Outcome{entities.OutcomeWin2, entities.Outcome("x")}
		matchRepo.On("GetByRound", ctx, TestRoundID).Return(createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID), nil)
		matchRepo.On("SetResults", ctx, TestRoundID, map[int64]entities.Outcome{
			TestMatch1ID: entities.OutcomeWin2,
			TestMatch2ID: entities.OutcomeDraw,
		}).Return(int64(2), nil)
		roundRepo.On("SetGameHash", ctx, TestRoundID, GameHash(TestRoundID, []entities.Outcome{entities.OutcomeWin2, entities.OutcomeDraw})).Return(nil)

		matches, err := resolver.Resolve(ctx, TestRoundID, outcomes)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, entities.OutcomeWin2, *matches[0].Result)
		assert.Equal(t, entities.OutcomeDraw, *matches[1].Result)
		matchRepo.AssertExpectations(t)
		roundRepo.AssertExpectations(t)
	})

	t.Run("refuses to overwrite a result", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo := new(testhelpers.MockRoundRepository)
		matchRepo := new(testhelpers.MockMatchRepository)
		resolver := NewMatchResolver(roundRepo, matchRepo)

		matches := createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID)
		existing := entities.OutcomeWin1
		matches[1].Result = &existing
		matchRepo.On("GetByRound", ctx, TestRoundID).Return(matches, nil)

		_, err := resolver.Resolve(ctx, TestRoundID, []entities.Outcome{entities.OutcomeWin1, entities.OutcomeWin2})

		assert.True(t, errors.Is(err, entities.ErrMatchAlreadyResolved))
		matchRepo.AssertNotCalled(t, "SetResults", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent resolution writes fewer rows", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo := new(testhelpers.MockRoundRepository)
		matchRepo := new(testhelpers.MockMatchRepository)
		resolver := NewMatchResolver(roundRepo, matchRepo)

		matchRepo.On("GetByRound", ctx, TestRoundID).Return(createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID), nil)
		matchRepo.On("SetResults", ctx, TestRoundID, mock.Anything).Return(int64(0), nil)

		_, err := resolver.Resolve(ctx, TestRoundID, []entities.Outcome{entities.OutcomeWin1, entities.OutcomeWin2})

		assert.True(t, errors.Is(err, entities.ErrMatchAlreadyResolved))
		roundRepo.AssertNotCalled(t, "SetGameHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("result count mismatch", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo := new(testhelpers.MockRoundRepository)
		matchRepo := new(testhelpers.MockMatchRepository)
		resolver := NewMatchResolver(roundRepo, matchRepo)

		matchRepo.On("GetByRound", ctx, TestRoundID).Return(createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID), nil)

		_, err := resolver.Resolve(ctx, TestRoundID, []entities.Outcome{entities.OutcomeWin1})

		assert.True(t, errors.Is(err, entities.ErrResultCountMismatch))
	})

	t.Run("invalid symbol writes nothing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo := new(testhelpers.MockRoundRepository)
		matchRepo := new(testhelpers.MockMatchRepository)
		resolver := NewMatchResolver(roundRepo, matchRepo)

		matchRepo.On("GetByRound", ctx, TestRoundID).Return(createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID), nil)

		_, err := resolver.Resolve(ctx, TestRoundID, []entities.Outcome{entities.OutcomeWin1, entities.Outcome("Y")})

		assert.True(t, errors.Is(err, entities.ErrInvalidOutcome))
		matchRepo.AssertNotCalled(t, "SetResults", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameHash(t *testing.T) {
	t.Parallel()

	a := GameHash(1, []entities.Outcome{entities.OutcomeWin1, entities.OutcomeDraw})
	b := GameHash(1, []entities.Outcome{entities.OutcomeDraw, entities.OutcomeWin1})
	c := GameHash(2, []entities.Outcome{entities.OutcomeWin1, entities.OutcomeDraw})

	assert.Len(t, a, 64)
	assert.Equal(t, a, GameHash(1, []entities.Outcome{entities.OutcomeWin1, entities.OutcomeDraw}))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMatchedCountCalculator_Recompute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := new(testhelpers.MockMatchRepository)
	variantRepo := new(testhelpers.MockBetVariantRepository)
	calculator := NewMatchedCountCalculator(matchRepo, variantRepo)

	matchRepo.On("GetByRound", ctx, TestRoundID).Return(resolvedMatches(TestRoundID, map[int64]entities.Outcome{
		TestMatch1ID: entities.OutcomeWin1,
		TestMatch2ID: entities.OutcomeDraw,
	}), nil)
	variantRepo.On("GetByRound", ctx, TestRoundID).Return([]*entities.BetVariant{
		{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
	}, nil)
	variantRepo.On("GetSelectionsByRound", ctx, TestRoundID).Return(map[int64][]entities.Pick{
		1: {{MatchID: TestMatch1ID, Outcome: entities.OutcomeWin1}, {MatchID: TestMatch2ID, Outcome: entities.OutcomeDraw}},
		2: {{MatchID: TestMatch1ID, Outcome: entities.OutcomeWin1}, {MatchID: TestMatch2ID, Outcome: entities.OutcomeWin2}},
		3: {{MatchID: TestMatch1ID, Outcome: entities.OutcomeWin2}, {MatchID: TestMatch2ID, Outcome: entities.OutcomeWin2}},
	}, nil)
	expected := map[int64]int{1: 2, 2: 1, 3: 0, 4: 0}
	variantRepo.On("UpdateMatchedCounts", ctx, expected).Return(nil).Twice()

	first, err := calculator.Recompute(ctx, TestRoundID)
	require.NoError(t, err)
	second, err := calculator.Recompute(ctx, TestRoundID)
	require.NoError(t, err)

	assert.Equal(t, expected, first)
	assert.Equal(t, first, second)
	variantRepo.AssertExpectations(t)
}

func TestMatchedCountCalculator_NoVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := new(testhelpers.MockMatchRepository)
	variantRepo := new(testhelpers.MockBetVariantRepository)
	calculator := NewMatchedCountCalculator(matchRepo, variantRepo)

	matchRepo.On("GetByRound", ctx, TestRoundID).Return([]*entities.Match{}, nil)
	variantRepo.On("GetByRound", ctx, TestRoundID).Return([]*entities.BetVariant{}, nil)

	counts, err := calculator.Recompute(ctx, TestRoundID)

	require.NoError(t, err)
	assert.Empty(t, counts)
	variantRepo.AssertNotCalled(t, "UpdateMatchedCounts", mock.Anything, mock.Anything)
}
