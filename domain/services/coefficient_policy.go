package services

import (
	"totopool/domain/entities"
	"totopool/domain/interfaces"

	"github.com/shopspring/decimal"
)

// coefficientPolicy pays a fixed multiple of the stake for an exact matched
// count. Nothing is pooled and the jackpot is left untouched.
type coefficientPolicy struct{}

// NewCoefficientPolicy creates the fixed-coefficient payout policy
func NewCoefficientPolicy() interfaces.PayoutPolicy {
	return &coefficientPolicy{}
}

func (p *coefficientPolicy) Name() entities.PayoutPolicyName {
	return entities.PayoutPolicyCoefficient
}

func (p *coefficientPolicy) Compute(input entities.PayoutInput) (*entities.PayoutPlan, error) {
	categoryStats, statIndex := emptyCategoryStats(input.Categories)

	coefficients := make(map[int]decimal.Decimal)
	for _, c := range entities.ActiveCategories(input.Categories) {
		coefficients[c.MatchedCount] = c.Coefficient
	}

	plan := &entities.PayoutPlan{
		Policy:          entities.PayoutPolicyCoefficient,
		JackpotBefore:   input.Jackpot,
		JackpotAfter:    input.Jackpot,
		JackpotAbsorbed: decimal.Zero,
		RolledOver:      decimal.Zero,
		TotalWin:        decimal.Zero,
		Wins:            make(map[int64]entities.VariantWin),
		Categories:      categoryStats,
	}

	for _, v := range input.Variants {
		coefficient, ok := coefficients[v.MatchedCount]
		if !ok || !v.Stake.IsPositive() {
			continue
		}
		amount := entities.RoundMoney(v.Stake.Mul(coefficient))
		if !amount.IsPositive() {
			continue
		}
		plan.Wins[v.VariantID] = entities.VariantWin{Amount: amount, Multiplier: coefficient}
		plan.TotalWin = plan.TotalWin.Add(amount)

		stat := &plan.Categories[statIndex[v.MatchedCount]]
		stat.Winners++
		stat.Payout = stat.Payout.Add(amount)
		stat.Fund = stat.Payout
	}

	plan.PayoutPool = plan.TotalWin
	return plan, nil
}
