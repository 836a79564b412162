package testhelpers

import (
	"context"
	"time"

	"totopool/domain/entities"
	"totopool/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username string, initialBalance decimal.Decimal) (*entities.User, error) {
	args := m.Called(ctx, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) Create(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetOldestByStatus(ctx context.Context, status entities.RoundStatus) (*entities.Round, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByStatus(ctx context.Context, status entities.RoundStatus) ([]*entities.Round, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) CountUnfinished(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRoundRepository) GetNextSelectionEnd(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockRoundRepository) TransitionStatus(ctx context.Context, id int64, from, to entities.RoundStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) OpenSelection(ctx context.Context, id int64, startTime, selectionEndTime time.Time) (bool, error) {
	args := m.Called(ctx, id, startTime, selectionEndTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) Finish(ctx context.Context, id int64, endTime time.Time) (bool, error) {
	args := m.Called(ctx, id, endTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) IncrementLivePool(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRoundRepository) SetGameHash(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockRoundRepository) ListFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) CreateBatch(ctx context.Context, matches []*entities.Match) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.Match, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Match), args.Error(1)
}

func (m *MockMatchRepository) SetResults(ctx context.Context, roundID int64, results map[int64]entities.Outcome) (int64, error) {
	args := m.Called(ctx, roundID, results)
	return args.Get(0).(int64), args.Error(1)
}

// MockTeamRepository is a mock implementation of TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *entities.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) GetActive(ctx context.Context) ([]*entities.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Team), args.Error(1)
}

// MockCouponRepository is a mock implementation of CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) Create(ctx context.Context, coupon *entities.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *MockCouponRepository) GetByID(ctx context.Context, id int64) (*entities.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Coupon), args.Error(1)
}

func (m *MockCouponRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.Coupon, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Coupon), args.Error(1)
}

func (m *MockCouponRepository) UpdateResults(ctx context.Context, coupons []*entities.Coupon) error {
	args := m.Called(ctx, coupons)
	return args.Error(0)
}

func (m *MockCouponRepository) ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Coupon), args.Error(1)
}

func (m *MockCouponRepository) GetUserRoundSummary(ctx context.Context, userID, roundID int64) (*entities.UserRoundSummary, error) {
	args := m.Called(ctx, userID, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserRoundSummary), args.Error(1)
}

// MockBetVariantRepository is a mock implementation of BetVariantRepository
type MockBetVariantRepository struct {
	mock.Mock
}

func (m *MockBetVariantRepository) CreateForCoupon(ctx context.Context, couponID int64, count int) ([]int64, error) {
	args := m.Called(ctx, couponID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBetVariantRepository) CreateSelections(ctx context.Context, selections []*entities.SelectedOutcome) (int64, error) {
	args := m.Called(ctx, selections)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetVariantRepository) GetByCoupon(ctx context.Context, couponID int64) ([]*entities.BetVariant, error) {
	args := m.Called(ctx, couponID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BetVariant), args.Error(1)
}

func (m *MockBetVariantRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.BetVariant, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BetVariant), args.Error(1)
}

func (m *MockBetVariantRepository) GetSelectionsByRound(ctx context.Context, roundID int64) (map[int64][]entities.Pick, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]entities.Pick), args.Error(1)
}

func (m *MockBetVariantRepository) UpdateMatchedCounts(ctx context.Context, counts map[int64]int) error {
	args := m.Called(ctx, counts)
	return args.Error(0)
}

func (m *MockBetVariantRepository) UpdateResults(ctx context.Context, variants []*entities.BetVariant) error {
	args := m.Called(ctx, variants)
	return args.Error(0)
}

func (m *MockBetVariantRepository) GetTopWins(ctx context.Context, since time.Time, limit int) ([]*entities.WinRecord, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WinRecord), args.Error(1)
}

// MockPayoutCategoryRepository is a mock implementation of PayoutCategoryRepository
type MockPayoutCategoryRepository struct {
	mock.Mock
}

func (m *MockPayoutCategoryRepository) GetAll(ctx context.Context) ([]*entities.PayoutCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PayoutCategory), args.Error(1)
}

func (m *MockPayoutCategoryRepository) GetActive(ctx context.Context) ([]*entities.PayoutCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PayoutCategory), args.Error(1)
}

func (m *MockPayoutCategoryRepository) Upsert(ctx context.Context, category *entities.PayoutCategory) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

// MockJackpotRepository is a mock implementation of JackpotRepository
type MockJackpotRepository struct {
	mock.Mock
}

func (m *MockJackpotRepository) Get(ctx context.Context) (*entities.Jackpot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Jackpot), args.Error(1)
}

func (m *MockJackpotRepository) GetForUpdate(ctx context.Context) (*entities.Jackpot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Jackpot), args.Error(1)
}

func (m *MockJackpotRepository) SetAmount(ctx context.Context, amount decimal.Decimal) error {
	args := m.Called(ctx, amount)
	return args.Error(0)
}

// MockBiggestWinRepository is a mock implementation of BiggestWinRepository
type MockBiggestWinRepository struct {
	mock.Mock
}

func (m *MockBiggestWinRepository) Get(ctx context.Context) (*entities.BiggestWin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BiggestWin), args.Error(1)
}

func (m *MockBiggestWinRepository) GetForUpdate(ctx context.Context) (*entities.BiggestWin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BiggestWin), args.Error(1)
}

func (m *MockBiggestWinRepository) Update(ctx context.Context, record *entities.BiggestWin) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockRoundStatsRepository is a mock implementation of RoundStatsRepository
type MockRoundStatsRepository struct {
	mock.Mock
}

func (m *MockRoundStatsRepository) Create(ctx context.Context, stats *entities.RoundStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockRoundStatsRepository) GetByRound(ctx context.Context, roundID int64) (*entities.RoundStats, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RoundStats), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockResultSource is a mock implementation of ResultSource
type MockResultSource struct {
	mock.Mock
}

func (m *MockResultSource) Generate(ctx context.Context, n int) ([]entities.Outcome, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Outcome), args.Error(1)
}
