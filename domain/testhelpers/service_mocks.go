package testhelpers

import (
	"context"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockMatchResolver is a mock implementation of MatchResolver
type MockMatchResolver struct {
	mock.Mock
}

func (m *MockMatchResolver) Resolve(ctx context.Context, roundID int64, outcomes []entities.Outcome) ([]*entities.Match, error) {
	args := m.Called(ctx, roundID, outcomes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Match), args.Error(1)
}

// MockMatchedCountCalculator is a mock implementation of MatchedCountCalculator
type MockMatchedCountCalculator struct {
	mock.Mock
}

func (m *MockMatchedCountCalculator) Recompute(ctx context.Context, roundID int64) (map[int64]int, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int), args.Error(1)
}

// MockPayoutEngine is a mock implementation of PayoutEngine
type MockPayoutEngine struct {
	mock.Mock
}

func (m *MockPayoutEngine) Settle(ctx context.Context, round *entities.Round) (*interfaces.SettlementResult, error) {
	args := m.Called(ctx, round)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SettlementResult), args.Error(1)
}

// MockOutcomeDrawer is a mock implementation of OutcomeDrawer
type MockOutcomeDrawer struct {
	mock.Mock
}

func (m *MockOutcomeDrawer) Draw(ctx context.Context, n int) []entities.Outcome {
	args := m.Called(ctx, n)
	return args.Get(0).([]entities.Outcome)
}
