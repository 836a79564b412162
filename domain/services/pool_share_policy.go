package services

import (
	"errors"
	"sort"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// poolSharePolicy divides the pool, net of the house fee, into per-tier funds
// shared by winners in proportion to their stakes
type poolSharePolicy struct {
	houseFeePercent decimal.Decimal
}

// NewPoolSharePolicy creates the parimutuel pool-share payout policy
func NewPoolSharePolicy(houseFeePercent decimal.Decimal) (interfaces.PayoutPolicy, error) {
	if houseFeePercent.IsNegative() || houseFeePercent.GreaterThan(hundred) {
		return nil, errors.New("house fee percent must be between 0 and 100")
	}
	return &poolSharePolicy{houseFeePercent: houseFeePercent}, nil
}

func (p *poolSharePolicy) Name() entities.PayoutPolicyName {
	return entities.PayoutPolicyPoolShare
}

// Compute settles a round. Tier k is won by every staked variant whose matched
// count is at least k, so a variant can collect from several tiers. The top
// tier absorbs the current jackpot. Tiers without winners, and the share of
// the pool no active category claims, roll into the jackpot.
func (p *poolSharePolicy) Compute(input entities.PayoutInput) (*entities.PayoutPlan, error) {
	active := entities.ActiveCategories(input.Categories)
	totalPercent := entities.TotalPercent(active)
	if totalPercent.GreaterThan(hundred) {
		log.WithFields(log.Fields{
			"anomaly":      "category_percent_overflow",
			"totalPercent": totalPercent.String(),
		}).Warn("Active payout categories exceed 100 percent, scaling funds down to the payout pool")
	}

	payoutPool := entities.RoundMoney(input.TotalPool.Mul(hundred.Sub(p.houseFeePercent)).Div(hundred))
	categoryStats, statIndex := emptyCategoryStats(input.Categories)

	plan := &entities.PayoutPlan{
		Policy:          entities.PayoutPolicyPoolShare,
		PayoutPool:      payoutPool,
		JackpotBefore:   input.Jackpot,
		JackpotAfter:    decimal.Zero,
		JackpotAbsorbed: decimal.Zero,
		RolledOver:      decimal.Zero,
		TotalWin:        decimal.Zero,
		Wins:            make(map[int64]entities.VariantWin),
		Categories:      categoryStats,
	}

	if len(active) == 0 {
		plan.RolledOver = payoutPool
		plan.JackpotAfter = input.Jackpot.Add(payoutPool)
		return plan, nil
	}

	funds := tierFunds(payoutPool, active, totalPercent)
	unallocated := payoutPool
	for _, fund := range funds {
		unallocated = unallocated.Sub(fund)
	}
	plan.RolledOver = unallocated
	plan.JackpotAfter = unallocated

	minTier := active[0].MatchedCount
	topTier := len(active) - 1

	stakes := make(map[int64]decimal.Decimal, len(input.Variants))
	for _, v := range input.Variants {
		stakes[v.VariantID] = v.Stake
	}

	for i, category := range active {
		fund := funds[i]
		distributable := fund
		if i == topTier {
			distributable = distributable.Add(input.Jackpot)
		}

		winners := tierWinners(input.Variants, category.MatchedCount, minTier)
		stat := &plan.Categories[statIndex[category.MatchedCount]]
		stat.Fund = fund
		stat.Winners = len(winners)

		if len(winners) == 0 {
			stat.RolledOver = true
			plan.RolledOver = plan.RolledOver.Add(fund)
			plan.JackpotAfter = plan.JackpotAfter.Add(distributable)
			continue
		}

		if i == topTier {
			plan.JackpotAbsorbed = input.Jackpot
		}

		shares := splitFund(distributable, winners)
		for _, w := range winners {
			share := shares[w.VariantID]
			win := plan.Wins[w.VariantID]
			win.Amount = win.Amount.Add(share)
			plan.Wins[w.VariantID] = win
			stat.Payout = stat.Payout.Add(share)
		}
	}

	for id, win := range plan.Wins {
		if !win.Amount.IsPositive() {
			delete(plan.Wins, id)
		}
	}
	finalizeWins(plan, stakes)

	return plan, nil
}

// tierFunds splits the payout pool by category percent, rounding each fund
// half-up. Percents summing to more than 100 are scaled down proportionally.
// Once the percents cover the whole pool the top tier takes the remainder so
// funds add up to it exactly. Rounding never lets the funds exceed the pool:
// any excess is trimmed from the top tier down.
func tierFunds(payoutPool decimal.Decimal, active []*entities.PayoutCategory, totalPercent decimal.Decimal) []decimal.Decimal {
	funds := make([]decimal.Decimal, len(active))
	allocated := decimal.Zero
	for i, c := range active {
		pct := c.Percent
		if totalPercent.GreaterThan(hundred) {
			pct = pct.Mul(hundred).Div(totalPercent)
		}
		funds[i] = entities.Percent(payoutPool, pct)
		allocated = allocated.Add(funds[i])
	}

	last := len(funds) - 1
	excess := allocated.Sub(payoutPool)
	if totalPercent.GreaterThanOrEqual(hundred) {
		funds[last] = funds[last].Sub(excess)
		excess = decimal.Zero
		if funds[last].IsNegative() {
			excess = funds[last].Neg()
			funds[last] = decimal.Zero
		}
	}
	for i := last; i >= 0 && excess.IsPositive(); i-- {
		take := decimal.Min(funds[i], excess)
		funds[i] = funds[i].Sub(take)
		excess = excess.Sub(take)
	}
	return funds
}

// tierWinners returns the staked variants that qualify for a tier, ordered by
// stake descending then variant ID ascending
func tierWinners(variants []entities.VariantStake, tier, minTier int) []entities.VariantStake {
	winners := make([]entities.VariantStake, 0)
	for _, v := range variants {
		if !v.Stake.IsPositive() {
			continue
		}
		if v.MatchedCount >= tier && !(v.MatchedCount < minTier) {
			winners = append(winners, v)
		}
	}
	sort.Slice(winners, func(i, j int) bool {
		if !winners[i].Stake.Equal(winners[j].Stake) {
			return winners[i].Stake.GreaterThan(winners[j].Stake)
		}
		return winners[i].VariantID < winners[j].VariantID
	})
	return winners
}

// splitFund shares a fund proportionally to stake, rounding each share half-up.
// The rounding residual goes to the largest stake so the tier pays exactly its
// fund. A negative residual larger than that share is taken cent by cent from
// the next winners in order so no share drops below zero.
func splitFund(fund decimal.Decimal, winners []entities.VariantStake) map[int64]decimal.Decimal {
	shares := make(map[int64]decimal.Decimal, len(winners))
	totalStake := decimal.Zero
	for _, w := range winners {
		totalStake = totalStake.Add(w.Stake)
	}

	paid := decimal.Zero
	for _, w := range winners {
		share := entities.RoundMoney(fund.Mul(w.Stake).Div(totalStake))
		shares[w.VariantID] = share
		paid = paid.Add(share)
	}

	residual := fund.Sub(paid)
	if residual.IsZero() {
		return shares
	}

	first := winners[0].VariantID
	if residual.IsPositive() || shares[first].Add(residual).GreaterThanOrEqual(decimal.Zero) {
		shares[first] = shares[first].Add(residual)
		return shares
	}

	owed := residual.Neg()
	for _, w := range winners {
		if !owed.IsPositive() {
			break
		}
		take := decimal.Min(shares[w.VariantID], owed)
		shares[w.VariantID] = shares[w.VariantID].Sub(take)
		owed = owed.Sub(take)
	}
	return shares
}
