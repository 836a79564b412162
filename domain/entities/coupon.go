package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is one betting slip a user submitted for a round
type Coupon struct {
	ID             int64           `db:"id"`
	UserID         int64           `db:"user_id"`
	RoundID        int64           `db:"round_id"`
	AmountTotal    decimal.Decimal `db:"amount_total"`
	NumVariants    int             `db:"num_variants"`
	CreatedAt      time.Time       `db:"created_at"`
	WinAmountTotal decimal.Decimal `db:"win_amount_total"`
	IsWinner       bool            `db:"is_winner"`
	IsSeen         bool            `db:"is_seen"`
}

// HasVariants returns false for the degenerate zero-variant coupon
func (c *Coupon) HasVariants() bool {
	return c.NumVariants > 0
}

// BetAmount returns the stake of each variant. A coupon without variants
// has no meaningful per-variant stake and yields zero.
func (c *Coupon) BetAmount() decimal.Decimal {
	if !c.HasVariants() {
		return decimal.Zero
	}
	return RoundMoney(c.AmountTotal.Div(decimal.NewFromInt(int64(c.NumVariants))))
}

// BetVariant is one single-outcome combination within a coupon
type BetVariant struct {
	ID            int64           `db:"id"`
	CouponID      int64           `db:"coupon_id"`
	MatchedCount  int             `db:"matched_count"`
	WinAmount     decimal.Decimal `db:"win_amount"`
	WinMultiplier decimal.Decimal `db:"win_multiplier"`
	IsWin         bool            `db:"is_win"`
}

// SelectedOutcome binds one pick to a match within a variant
type SelectedOutcome struct {
	ID        int64   `db:"id"`
	VariantID int64   `db:"variant_id"`
	MatchID   int64   `db:"match_id"`
	Outcome   Outcome `db:"outcome"`
}

// WinRecord is a settled winning variant with its owner, used by leaderboards
type WinRecord struct {
	VariantID     int64           `db:"variant_id"`
	CouponID      int64           `db:"coupon_id"`
	RoundID       int64           `db:"round_id"`
	UserID        int64           `db:"user_id"`
	Username      string          `db:"username"`
	WinAmount     decimal.Decimal `db:"win_amount"`
	WinMultiplier decimal.Decimal `db:"win_multiplier"`
	CreatedAt     time.Time       `db:"created_at"`
}

// UserRoundSummary aggregates one user's coupons in a round
type UserRoundSummary struct {
	UserID      int64           `db:"user_id"`
	RoundID     int64           `db:"round_id"`
	CouponCount int             `db:"coupon_count"`
	TotalStaked decimal.Decimal `db:"total_staked"`
	TotalWon    decimal.Decimal `db:"total_won"`
}

// CountMatched returns how many picks equal the resolved result of their
// match. Picks on unresolved matches never count.
func CountMatched(picks []Pick, results map[int64]Outcome) int {
	matched := 0
	for _, p := range picks {
		if result, ok := results[p.MatchID]; ok && result == p.Outcome {
			matched++
		}
	}
	return matched
}
