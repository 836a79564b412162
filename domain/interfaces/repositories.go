package interfaces

import (
	"context"
	"time"

	"totopool/domain/entities"
	"totopool/domain/events"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, nil if not found
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, username string, initialBalance decimal.Decimal) (*entities.User, error)

	// DebitIfSufficient subtracts amount only when the balance covers it.
	// ok is false when the balance was insufficient and nothing changed.
	DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (newBalance decimal.Decimal, ok bool, err error)

	// AdjustBalance atomically adds a signed delta and returns the new balance
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByUser returns the most recent balance history for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error)
}

// RoundRepository defines the interface for round data access
type RoundRepository interface {
	Create(ctx context.Context, round *entities.Round) error
	GetByID(ctx context.Context, id int64) (*entities.Round, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error)

	// GetOldestByStatus returns the oldest round in a status, nil if none
	GetOldestByStatus(ctx context.Context, status entities.RoundStatus) (*entities.Round, error)

	// GetByStatus returns all rounds in a status, oldest first
	GetByStatus(ctx context.Context, status entities.RoundStatus) ([]*entities.Round, error)

	// GetCurrent returns the newest round between opening and finalization
	GetCurrent(ctx context.Context) (*entities.Round, error)

	// CountUnfinished counts rounds that are not finished
	CountUnfinished(ctx context.Context) (int, error)

	// GetNextSelectionEnd returns the earliest betting deadline of open rounds
	GetNextSelectionEnd(ctx context.Context) (*time.Time, error)

	// TransitionStatus moves a round from one status to another only if it is
	// still in the expected status. Returns false when the round was not in from.
	TransitionStatus(ctx context.Context, id int64, from, to entities.RoundStatus) (bool, error)

	// OpenSelection moves a waiting round to selection and stamps its window
	OpenSelection(ctx context.Context, id int64, startTime, selectionEndTime time.Time) (bool, error)

	// Finish moves a round in payout to finished and stamps end_time
	Finish(ctx context.Context, id int64, endTime time.Time) (bool, error)

	// IncrementLivePool atomically adds amount to the pool of a round that is
	// accepting bets and returns the new pool
	IncrementLivePool(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	SetGameHash(ctx context.Context, id int64, hash string) error

	// ListFinished returns finished rounds, newest first
	ListFinished(ctx context.Context, limit int) ([]*entities.Round, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	CreateBatch(ctx context.Context, matches []*entities.Match) error

	// GetByRound returns the matches of a round ordered by ID
	GetByRound(ctx context.Context, roundID int64) ([]*entities.Match, error)

	// SetResults writes every result in one statement, touching only
	// unresolved matches of the round, and returns the number of rows written
	SetResults(ctx context.Context, roundID int64, results map[int64]entities.Outcome) (int64, error)
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	Create(ctx context.Context, team *entities.Team) error
	GetActive(ctx context.Context) ([]*entities.Team, error)
}

// CouponRepository defines the interface for coupon data access
type CouponRepository interface {
	Create(ctx context.Context, coupon *entities.Coupon) error
	GetByID(ctx context.Context, id int64) (*entities.Coupon, error)
	GetByRound(ctx context.Context, roundID int64) ([]*entities.Coupon, error)

	// UpdateResults persists win totals, winner and seen flags in one statement
	UpdateResults(ctx context.Context, coupons []*entities.Coupon) error

	// ClaimUnseenWin returns the newest unseen winning coupon of a user and
	// marks all of the user's unseen winning coupons as seen
	ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error)

	// GetUserRoundSummary aggregates a user's coupons in a round
	GetUserRoundSummary(ctx context.Context, userID, roundID int64) (*entities.UserRoundSummary, error)
}

// BetVariantRepository defines the interface for variant and selection data access
type BetVariantRepository interface {
	// CreateForCoupon inserts count variants and returns their IDs ascending
	CreateForCoupon(ctx context.Context, couponID int64, count int) ([]int64, error)

	// CreateSelections bulk-inserts selected outcomes
	CreateSelections(ctx context.Context, selections []*entities.SelectedOutcome) (int64, error)

	GetByCoupon(ctx context.Context, couponID int64) ([]*entities.BetVariant, error)
	GetByRound(ctx context.Context, roundID int64) ([]*entities.BetVariant, error)

	// GetSelectionsByRound returns picks of every variant in the round,
	// grouped by variant ID
	GetSelectionsByRound(ctx context.Context, roundID int64) (map[int64][]entities.Pick, error)

	// UpdateMatchedCounts writes every count in one statement
	UpdateMatchedCounts(ctx context.Context, counts map[int64]int) error

	// UpdateResults writes win amount, multiplier and win flag in one statement
	UpdateResults(ctx context.Context, variants []*entities.BetVariant) error

	// GetTopWins returns the largest winning variants created since a time
	GetTopWins(ctx context.Context, since time.Time, limit int) ([]*entities.WinRecord, error)
}

// PayoutCategoryRepository defines the interface for category configuration
type PayoutCategoryRepository interface {
	GetAll(ctx context.Context) ([]*entities.PayoutCategory, error)
	GetActive(ctx context.Context) ([]*entities.PayoutCategory, error)
	Upsert(ctx context.Context, category *entities.PayoutCategory) error
}

// JackpotRepository defines the interface for the jackpot singleton
type JackpotRepository interface {
	Get(ctx context.Context) (*entities.Jackpot, error)

	// GetForUpdate locks the jackpot row, creating it when missing
	GetForUpdate(ctx context.Context) (*entities.Jackpot, error)

	SetAmount(ctx context.Context, amount decimal.Decimal) error
}

// BiggestWinRepository defines the interface for the biggest-win singleton
type BiggestWinRepository interface {
	Get(ctx context.Context) (*entities.BiggestWin, error)

	// GetForUpdate locks the record row, creating it when missing
	GetForUpdate(ctx context.Context) (*entities.BiggestWin, error)

	Update(ctx context.Context, record *entities.BiggestWin) error
}

// RoundStatsRepository defines the interface for round statistics
type RoundStatsRepository interface {
	// Create inserts the statistics of a round; a second insert fails
	Create(ctx context.Context, stats *entities.RoundStats) error
	GetByRound(ctx context.Context, roundID int64) (*entities.RoundStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
