package entities

import (
	"github.com/shopspring/decimal"
)

// PayoutPolicyName identifies a payout strategy
type PayoutPolicyName string

const (
	PayoutPolicyPoolShare   PayoutPolicyName = "pool_share"
	PayoutPolicyCoefficient PayoutPolicyName = "coefficient"
)

// VariantStake is the settlement view of a variant: its count and stake
type VariantStake struct {
	VariantID    int64
	CouponID     int64
	MatchedCount int
	Stake        decimal.Decimal
}

// PayoutInput is everything a payout policy needs to settle a round
type PayoutInput struct {
	TotalPool  decimal.Decimal
	Jackpot    decimal.Decimal
	Categories []*PayoutCategory
	Variants   []VariantStake
}

// VariantWin is the amount and multiplier awarded to a variant
type VariantWin struct {
	Amount     decimal.Decimal
	Multiplier decimal.Decimal
}

// PayoutPlan is the pure result of a payout policy
type PayoutPlan struct {
	Policy          PayoutPolicyName
	PayoutPool      decimal.Decimal
	JackpotBefore   decimal.Decimal
	JackpotAfter    decimal.Decimal
	JackpotAbsorbed decimal.Decimal
	RolledOver      decimal.Decimal
	TotalWin        decimal.Decimal
	Wins            map[int64]VariantWin
	Categories      []CategoryStat
}

// WinFor returns the win awarded to a variant, zero if none
func (p *PayoutPlan) WinFor(variantID int64) VariantWin {
	if win, ok := p.Wins[variantID]; ok {
		return win
	}
	return VariantWin{Amount: decimal.Zero, Multiplier: decimal.Zero}
}
