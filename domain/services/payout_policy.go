package services

import (
	"fmt"
	"sort"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	"github.com/shopspring/decimal"
)

// NewPayoutPolicy returns the payout strategy configured for the deployment
func NewPayoutPolicy(name entities.PayoutPolicyName, houseFeePercent decimal.Decimal) (interfaces.PayoutPolicy, error) {
	switch name {
	case entities.PayoutPolicyPoolShare:
		return NewPoolSharePolicy(houseFeePercent)
	case entities.PayoutPolicyCoefficient:
		return NewCoefficientPolicy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownPayoutPolicy, name)
	}
}

// sortedCategories returns every configured category ascending by matched count
func sortedCategories(categories []*entities.PayoutCategory) []*entities.PayoutCategory {
	sorted := make([]*entities.PayoutCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MatchedCount < sorted[j].MatchedCount
	})
	return sorted
}

// emptyCategoryStats builds the fixed-shape per-category aggregate with zero values
func emptyCategoryStats(categories []*entities.PayoutCategory) ([]entities.CategoryStat, map[int]int) {
	sorted := sortedCategories(categories)
	stats := make([]entities.CategoryStat, 0, len(sorted))
	index := make(map[int]int, len(sorted))
	for _, c := range sorted {
		index[c.MatchedCount] = len(stats)
		stats = append(stats, entities.CategoryStat{
			MatchedCount: c.MatchedCount,
			Percent:      c.Percent,
			Coefficient:  c.Coefficient,
			Fund:         decimal.Zero,
			Payout:       decimal.Zero,
		})
	}
	return stats, index
}

// finalizeWins derives multipliers from accumulated amounts and sums the total
func finalizeWins(plan *entities.PayoutPlan, stakes map[int64]decimal.Decimal) {
	total := decimal.Zero
	for id, win := range plan.Wins {
		stake := stakes[id]
		if stake.IsPositive() {
			win.Multiplier = entities.RoundMoney(win.Amount.Div(stake))
		} else {
			win.Multiplier = decimal.Zero
		}
		plan.Wins[id] = win
		total = total.Add(win.Amount)
	}
	plan.TotalWin = total
}
