package services

import (
	"testing"
	"time"

	"totopool/domain/entities"
	"totopool/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestRoundID  = int64(7)
	TestUserID   = int64(100)
	TestUser2ID  = int64(200)
	TestCouponID = int64(55)
	TestMatch1ID = int64(101)
	TestMatch2ID = int64(102)
)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	RoundRepo          *testhelpers.MockRoundRepository
	MatchRepo          *testhelpers.MockMatchRepository
	TeamRepo           *testhelpers.MockTeamRepository
	UserRepo           *testhelpers.MockUserRepository
	CouponRepo         *testhelpers.MockCouponRepository
	VariantRepo        *testhelpers.MockBetVariantRepository
	CategoryRepo       *testhelpers.MockPayoutCategoryRepository
	JackpotRepo        *testhelpers.MockJackpotRepository
	BiggestWinRepo     *testhelpers.MockBiggestWinRepository
	StatsRepo          *testhelpers.MockRoundStatsRepository
	BalanceHistoryRepo *testhelpers.MockBalanceHistoryRepository
	EventPublisher     *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		RoundRepo:          &testhelpers.MockRoundRepository{},
		MatchRepo:          &testhelpers.MockMatchRepository{},
		TeamRepo:           &testhelpers.MockTeamRepository{},
		UserRepo:           &testhelpers.MockUserRepository{},
		CouponRepo:         &testhelpers.MockCouponRepository{},
		VariantRepo:        &testhelpers.MockBetVariantRepository{},
		CategoryRepo:       &testhelpers.MockPayoutCategoryRepository{},
		JackpotRepo:        &testhelpers.MockJackpotRepository{},
		BiggestWinRepo:     &testhelpers.MockBiggestWinRepository{},
		StatsRepo:          &testhelpers.MockRoundStatsRepository{},
		BalanceHistoryRepo: &testhelpers.MockBalanceHistoryRepository{},
		EventPublisher:     &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.RoundRepo.AssertExpectations(t)
	m.MatchRepo.AssertExpectations(t)
	m.TeamRepo.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
	m.CouponRepo.AssertExpectations(t)
	m.VariantRepo.AssertExpectations(t)
	m.CategoryRepo.AssertExpectations(t)
	m.JackpotRepo.AssertExpectations(t)
	m.BiggestWinRepo.AssertExpectations(t)
	m.StatsRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// decimalEq matches a decimal argument by value rather than representation
func decimalEq(expected string) interface{} {
	want := decimal.RequireFromString(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func createTestRound(id int64, status entities.RoundStatus) *entities.Round {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &entities.Round{
		ID:        id,
		Status:    status,
		LivePool:  decimal.Zero,
		CreatedAt: created,
	}
}

func createTestMatches(roundID int64, ids ...int64) []*entities.Match {
	matches := make([]*entities.Match, 0, len(ids))
	for i, id := range ids {
		matches = append(matches, &entities.Match{
			ID:      id,
			RoundID: roundID,
			Team1ID: int64(2*i + 1),
			Team2ID: int64(2*i + 2),
		})
	}
	return matches
}

func resolvedMatches(roundID int64, results map[int64]entities.Outcome) []*entities.Match {
	matches := make([]*entities.Match, 0, len(results))
	for id, outcome := range results {
		result := outcome
		matches = append(matches, &entities.Match{ID: id, RoundID: roundID, Result: &result})
	}
	return matches
}

func createTestUser(id int64, balance string) *entities.User {
	return &entities.User{
		ID:       id,
		Username: "testuser",
		Balance:  decimal.RequireFromString(balance),
	}
}
