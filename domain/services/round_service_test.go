package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"totopool/domain/entities"
	"totopool/domain/events"
	"totopool/domain/interfaces"
	"totopool/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var roundNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// setupRoundServiceMocks creates the collaborators needed for round service tests
func setupRoundServiceMocks() (
	*testhelpers.MockRoundRepository,
	*testhelpers.MockMatchResolver,
	*testhelpers.MockMatchedCountCalculator,
	*testhelpers.MockPayoutEngine,
	*testhelpers.MockEventPublisher,
) {
	return new(testhelpers.MockRoundRepository),
		new(testhelpers.MockMatchResolver),
		new(testhelpers.MockMatchedCountCalculator),
		new(testhelpers.MockPayoutEngine),
		new(testhelpers.MockEventPublisher)
}

func newTestRoundService(
	roundRepo *testhelpers.MockRoundRepository,
	resolver *testhelpers.MockMatchResolver,
	calculator *testhelpers.MockMatchedCountCalculator,
	engine *testhelpers.MockPayoutEngine,
	publisher *testhelpers.MockEventPublisher,
) *roundService {
	s := NewRoundService(roundRepo, resolver, calculator, engine, publisher, 3*time.Minute).(*roundService)
	s.now = func() time.Time { return roundNow }
	return s
}

func statusChanged(from, to entities.RoundStatus) interface{} {
	return mock.MatchedBy(func(e events.RoundStatusChangedEvent) bool {
		return e.RoundID == TestRoundID && e.OldStatus == from && e.NewStatus == to
	})
}

func TestRoundService_StartNextRound(t *testing.T) {
	t.Parallel()

	t.Run("opens the oldest waiting round", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetOldestByStatus", ctx, entities.RoundStatusWaiting).Return(createTestRound(TestRoundID, entities.RoundStatusWaiting), nil)
		roundRepo.On("OpenSelection", ctx, TestRoundID, roundNow, roundNow.Add(3*time.Minute)).Return(true, nil)
		publisher.On("Publish", statusChanged(entities.RoundStatusWaiting, entities.RoundStatusSelection)).Return(nil)

		round, err := service.StartNextRound(ctx)

		require.NoError(t, err)
		assert.Equal(t, entities.RoundStatusSelection, round.Status)
		require.NotNil(t, round.SelectionEndTime)
		assert.Equal(t, roundNow.Add(3*time.Minute), *round.SelectionEndTime)
		roundRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("no waiting round", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetOldestByStatus", ctx, entities.RoundStatusWaiting).Return(nil, nil)

		round, err := service.StartNextRound(ctx)

		require.NoError(t, err)
		assert.Nil(t, round)
		publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("lost race", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetOldestByStatus", ctx, entities.RoundStatusWaiting).Return(createTestRound(TestRoundID, entities.RoundStatusWaiting), nil)
		roundRepo.On("OpenSelection", ctx, TestRoundID, mock.Anything, mock.Anything).Return(false, nil)

		_, err := service.StartNextRound(ctx)

		assert.True(t, errors.Is(err, entities.ErrInvalidTransition))
		publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})
}

func TestRoundService_CloseSelection(t *testing.T) {
	t.Parallel()

	expired := roundNow.Add(-time.Second)
	open := roundNow.Add(time.Minute)

	tests := []struct {
		name        string
		status      entities.RoundStatus
		selectionAt time.Time
		force       bool
		casResult   bool
		expectedErr error
	}{
		{name: "closes expired window", status: entities.RoundStatusSelection, selectionAt: expired, casResult: true},
		{name: "closes exactly at deadline", status: entities.RoundStatusSelection, selectionAt: roundNow, casResult: true},
		{name: "forced close of open window", status: entities.RoundStatusSelection, selectionAt: open, force: true, casResult: true},
		{name: "window still open", status: entities.RoundStatusSelection, selectionAt: open, expectedErr: entities.ErrSelectionStillOpen},
		{name: "wrong status", status: entities.RoundStatusWaiting, selectionAt: expired, expectedErr: entities.ErrInvalidTransition},
		{name: "concurrent close", status: entities.RoundStatusSelection, selectionAt: expired, casResult: false, expectedErr: entities.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
			service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

			round := createTestRound(TestRoundID, tt.status)
			selectionEnd := tt.selectionAt
			round.SelectionEndTime = &selectionEnd
			roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(round, nil)
			roundRepo.On("TransitionStatus", ctx, TestRoundID, entities.RoundStatusSelection, entities.RoundStatusCalculation).Return(tt.casResult, nil).Maybe()
			publisher.On("Publish", statusChanged(entities.RoundStatusSelection, entities.RoundStatusCalculation)).Return(nil).Maybe()

			result, err := service.CloseSelection(ctx, TestRoundID, tt.force)

			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				publisher.AssertNotCalled(t, "Publish", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.RoundStatusCalculation, result.Status)
			publisher.AssertNumberOfCalls(t, "Publish", 1)
		})
	}
}

func TestRoundService_ResolveMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outcomes := []entities.Outcome{entities.OutcomeWin1, entities.OutcomeDraw}

	t.Run("delegates to resolver in calculation", func(t *testing.T) {
		t.Parallel()

		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, entities.RoundStatusCalculation), nil)
		resolver.On("Resolve", ctx, TestRoundID, outcomes).Return(createTestMatches(TestRoundID, TestMatch1ID, TestMatch2ID), nil)

		matches, err := service.ResolveMatches(ctx, TestRoundID, outcomes)

		require.NoError(t, err)
		assert.Len(t, matches, 2)
		resolver.AssertExpectations(t)
	})

	t.Run("rejects rounds outside calculation", func(t *testing.T) {
		t.Parallel()

		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, entities.RoundStatusSelection), nil)

		_, err := service.ResolveMatches(ctx, TestRoundID, outcomes)

		assert.True(t, errors.Is(err, entities.ErrInvalidTransition))
		resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown round", func(t *testing.T) {
		t.Parallel()

		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(nil, nil)

		_, err := service.ResolveMatches(ctx, TestRoundID, outcomes)

		assert.True(t, errors.Is(err, entities.ErrRoundNotFound))
	})
}

func TestRoundService_Settle(t *testing.T) {
	t.Parallel()

	settlement := func() *interfaces.SettlementResult {
		return &interfaces.SettlementResult{
			RoundID: TestRoundID,
			Plan: &entities.PayoutPlan{
				Policy:        entities.PayoutPolicyPoolShare,
				TotalWin:      money("95"),
				JackpotBefore: money("10"),
				JackpotAfter:  money("0"),
			},
			Stats:        &entities.RoundStats{RoundID: TestRoundID, TotalPool: money("100")},
			UserWinnings: map[int64]decimal.Decimal{TestUserID: money("95")},
		}
	}

	t.Run("moves calculation through payout to finished", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, entities.RoundStatusCalculation), nil)
		roundRepo.On("TransitionStatus", ctx, TestRoundID, entities.RoundStatusCalculation, entities.RoundStatusPayout).Return(true, nil)
		calculator.On("Recompute", ctx, TestRoundID).Return(map[int64]int{1: 10}, nil)
		engine.On("Settle", ctx, mock.MatchedBy(func(r *entities.Round) bool {
			return r.Status == entities.RoundStatusPayout
		})).Return(settlement(), nil)
		roundRepo.On("Finish", ctx, TestRoundID, roundNow).Return(true, nil)
		publisher.On("Publish", statusChanged(entities.RoundStatusCalculation, entities.RoundStatusPayout)).Return(nil).Once()
		publisher.On("Publish", statusChanged(entities.RoundStatusPayout, entities.RoundStatusFinished)).Return(nil).Once()
		publisher.On("Publish", mock.MatchedBy(func(e events.RoundSettledEvent) bool {
			return e.RoundID == TestRoundID && e.WinningUsers == 1 && e.TotalWin.Equal(money("95"))
		})).Return(nil).Once()

		result, err := service.Settle(ctx, TestRoundID)

		require.NoError(t, err)
		assert.Equal(t, TestRoundID, result.RoundID)
		roundRepo.AssertExpectations(t)
		calculator.AssertExpectations(t)
		engine.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("engine failure stops before finish", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, entities.RoundStatusCalculation), nil)
		roundRepo.On("TransitionStatus", ctx, TestRoundID, entities.RoundStatusCalculation, entities.RoundStatusPayout).Return(true, nil)
		calculator.On("Recompute", ctx, TestRoundID).Return(map[int64]int{}, nil)
		engine.On("Settle", ctx, mock.Anything).Return(nil, entities.ErrRoundNotResolved)
		publisher.On("Publish", mock.Anything).Return(nil)

		_, err := service.Settle(ctx, TestRoundID)

		assert.True(t, errors.Is(err, entities.ErrRoundNotResolved))
		roundRepo.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already settled round", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
		service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

		roundRepo.On("GetByIDForUpdate", ctx, TestRoundID).Return(createTestRound(TestRoundID, entities.RoundStatusFinished), nil)

		_, err := service.Settle(ctx, TestRoundID)

		assert.True(t, errors.Is(err, entities.ErrInvalidTransition))
		calculator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
		engine.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})
}

func TestRoundService_GetLivePool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roundRepo, resolver, calculator, engine, publisher := setupRoundServiceMocks()
	service := newTestRoundService(roundRepo, resolver, calculator, engine, publisher)

	round := createTestRound(TestRoundID, entities.RoundStatusSelection)
	round.LivePool = money("123.45")
	roundRepo.On("GetByID", ctx, TestRoundID).Return(round, nil)
	roundRepo.On("GetByID", ctx, int64(999)).Return(nil, nil)

	pool, err := service.GetLivePool(ctx, TestRoundID)
	require.NoError(t, err)
	assertMoney(t, "123.45", pool)

	_, err = service.GetLivePool(ctx, 999)
	assert.True(t, errors.Is(err, entities.ErrRoundNotFound))
}
