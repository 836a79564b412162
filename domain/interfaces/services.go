package interfaces

import (
	"context"
	"time"

	"totopool/domain/entities"

	"github.com/shopspring/decimal"
)

// PlaceCouponRequest is a user's multi-outcome selection for a round
type PlaceCouponRequest struct {
	UserID    int64
	RoundID   int64
	Selection entities.Selection
	Stake     decimal.Decimal
}

// PlaceCouponResult is returned after a coupon is persisted
type PlaceCouponResult struct {
	Coupon           *entities.Coupon
	NumVariants      int
	TotalAmount      decimal.Decimal
	RemainingBalance decimal.Decimal
	LivePool         decimal.Decimal
}

// SettlementResult describes what the payout engine applied to a round
type SettlementResult struct {
	RoundID           int64
	Plan              *entities.PayoutPlan
	Stats             *entities.RoundStats
	UserWinnings      map[int64]decimal.Decimal
	BiggestWinUpdated bool
}

// WinningUsers returns the number of users credited in the settlement
func (r *SettlementResult) WinningUsers() int {
	return len(r.UserWinnings)
}

// CouponService builds coupons and their variants
type CouponService interface {
	// PlaceCoupon validates a selection, expands it into variants, debits the
	// user and grows the round pool, all inside the caller's transaction
	PlaceCoupon(ctx context.Context, req PlaceCouponRequest) (*PlaceCouponResult, error)
}

// ResultSource provides uniformly random outcomes for n matches
type ResultSource interface {
	Generate(ctx context.Context, n int) ([]entities.Outcome, error)
}

// OutcomeDrawer always produces n outcomes, falling back locally when the
// result source fails
type OutcomeDrawer interface {
	Draw(ctx context.Context, n int) []entities.Outcome
}

// MatchResolver writes results to the matches of a round exactly once
type MatchResolver interface {
	Resolve(ctx context.Context, roundID int64, outcomes []entities.Outcome) ([]*entities.Match, error)
}

// MatchedCountCalculator re-derives variant matched counts from results
type MatchedCountCalculator interface {
	Recompute(ctx context.Context, roundID int64) (map[int64]int, error)
}

// PayoutPolicy converts matched counts and categories into wins
type PayoutPolicy interface {
	Name() entities.PayoutPolicyName
	Compute(input entities.PayoutInput) (*entities.PayoutPlan, error)
}

// PayoutEngine applies a payout policy to a resolved round
type PayoutEngine interface {
	Settle(ctx context.Context, round *entities.Round) (*SettlementResult, error)
}

// RoundService drives rounds through their lifecycle
type RoundService interface {
	// StartNextRound opens betting on the oldest waiting round, nil if none
	StartNextRound(ctx context.Context) (*entities.Round, error)

	// CloseSelection stops betting on a round whose window has elapsed.
	// force closes the window early.
	CloseSelection(ctx context.Context, roundID int64, force bool) (*entities.Round, error)

	// ResolveMatches assigns results to a round in calculation
	ResolveMatches(ctx context.Context, roundID int64, outcomes []entities.Outcome) ([]*entities.Match, error)

	// Settle recomputes matched counts, pays out and finishes the round
	Settle(ctx context.Context, roundID int64) (*SettlementResult, error)

	// GetLivePool returns the current wagered total of a round
	GetLivePool(ctx context.Context, roundID int64) (decimal.Decimal, error)
}

// RoundScheduler keeps a lookahead buffer of waiting rounds
type RoundScheduler interface {
	// EnsureLookahead creates waiting rounds until the buffer is full and
	// returns how many were created
	EnsureLookahead(ctx context.Context) (int, error)
}

// RoundOverview is a round with its matches
type RoundOverview struct {
	Round   *entities.Round
	Matches []*entities.Match
}

// StatsService answers read-only questions about rounds and wins
type StatsService interface {
	GetCurrentRound(ctx context.Context) (*RoundOverview, error)
	ListFinishedRounds(ctx context.Context, limit int) ([]*entities.Round, error)
	GetRoundStats(ctx context.Context, roundID int64) (*entities.RoundStats, error)
	GetBiggestWin(ctx context.Context) (*entities.BiggestWin, error)
	GetJackpot(ctx context.Context) (*entities.Jackpot, error)
	TopWins(ctx context.Context, now time.Time, limit int) ([]*entities.WinRecord, error)
	ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error)
	GetUserRoundSummary(ctx context.Context, userID, roundID int64) (*entities.UserRoundSummary, error)
	GetActiveCategories(ctx context.Context) ([]*entities.PayoutCategory, error)
}

// UserService registers bettors
type UserService interface {
	// Register creates a user funded with the configured starting balance
	Register(ctx context.Context, username string) (*entities.User, error)
}
