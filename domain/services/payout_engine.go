package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultBiggestWinTTL is how long a biggest-win record is protected from
// being overwritten by a smaller win
const DefaultBiggestWinTTL = 7 * 24 * time.Hour

// payoutEngine applies a payout policy to a resolved round and persists the
// results on variants, coupons, balances, the jackpot and round statistics
type payoutEngine struct {
	matchRepo          interfaces.MatchRepository
	couponRepo         interfaces.CouponRepository
	variantRepo        interfaces.BetVariantRepository
	categoryRepo       interfaces.PayoutCategoryRepository
	jackpotRepo        interfaces.JackpotRepository
	biggestWinRepo     interfaces.BiggestWinRepository
	statsRepo          interfaces.RoundStatsRepository
	userRepo           interfaces.UserRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	policy             interfaces.PayoutPolicy
	biggestWinTTL      time.Duration
	now                func() time.Time
}

// NewPayoutEngine creates a new payout engine
func NewPayoutEngine(
	matchRepo interfaces.MatchRepository,
	couponRepo interfaces.CouponRepository,
	variantRepo interfaces.BetVariantRepository,
	categoryRepo interfaces.PayoutCategoryRepository,
	jackpotRepo interfaces.JackpotRepository,
	biggestWinRepo interfaces.BiggestWinRepository,
	statsRepo interfaces.RoundStatsRepository,
	userRepo interfaces.UserRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	policy interfaces.PayoutPolicy,
	biggestWinTTL time.Duration,
) interfaces.PayoutEngine {
	if biggestWinTTL <= 0 {
		biggestWinTTL = DefaultBiggestWinTTL
	}
	return &payoutEngine{
		matchRepo:          matchRepo,
		couponRepo:         couponRepo,
		variantRepo:        variantRepo,
		categoryRepo:       categoryRepo,
		jackpotRepo:        jackpotRepo,
		biggestWinRepo:     biggestWinRepo,
		statsRepo:          statsRepo,
		userRepo:           userRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		policy:             policy,
		biggestWinTTL:      biggestWinTTL,
		now:                time.Now,
	}
}

// Settle computes and applies the payout of a round whose matches are all
// resolved and whose matched counts are current. It does not move the round
// out of payout; the caller finishes the round in the same transaction.
func (e *payoutEngine) Settle(ctx context.Context, round *entities.Round) (*interfaces.SettlementResult, error) {
	matches, err := e.matchRepo.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	if !entities.AllResolved(matches) {
		return nil, entities.ErrRoundNotResolved
	}

	categories, err := e.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout categories: %w", err)
	}

	jackpot, err := e.jackpotRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock jackpot: %w", err)
	}

	coupons, err := e.couponRepo.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupons: %w", err)
	}
	variants, err := e.variantRepo.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}

	couponsByID := make(map[int64]*entities.Coupon, len(coupons))
	stakes := make(map[int64]decimal.Decimal, len(coupons))
	for _, c := range coupons {
		couponsByID[c.ID] = c
		if !c.HasVariants() {
			log.WithFields(log.Fields{
				"roundID":  round.ID,
				"couponID": c.ID,
				"anomaly":  "zero_variants",
			}).Warn("Coupon has no variants, treating stake as zero")
		}
		stakes[c.ID] = c.BetAmount()
	}

	input := entities.PayoutInput{
		TotalPool:  round.LivePool,
		Jackpot:    jackpot.Amount,
		Categories: categories,
		Variants:   make([]entities.VariantStake, 0, len(variants)),
	}
	for _, v := range variants {
		input.Variants = append(input.Variants, entities.VariantStake{
			VariantID:    v.ID,
			CouponID:     v.CouponID,
			MatchedCount: v.MatchedCount,
			Stake:        stakes[v.CouponID],
		})
	}

	plan, err := e.policy.Compute(input)
	if err != nil {
		return nil, fmt.Errorf("failed to compute payout: %w", err)
	}

	stats := &entities.RoundStats{
		RoundID:         round.ID,
		Policy:          string(plan.Policy),
		TotalPool:       input.TotalPool,
		PayoutPool:      plan.PayoutPool,
		JackpotBefore:   plan.JackpotBefore,
		JackpotAfter:    plan.JackpotAfter,
		JackpotAbsorbed: plan.JackpotAbsorbed,
		RolledOver:      plan.RolledOver,
		TotalWin:        plan.TotalWin,
		Categories:      plan.Categories,
		BestMultiplier:  entities.MultiplierObservation{X: decimal.Zero, Sum: decimal.Zero},
		BiggestWin:      entities.WinObservation{Sum: decimal.Zero, X: decimal.Zero},
	}

	couponWins := make(map[int64]decimal.Decimal, len(coupons))
	for _, v := range variants {
		win := plan.WinFor(v.ID)
		v.WinAmount = win.Amount
		v.WinMultiplier = win.Multiplier
		v.IsWin = win.Amount.IsPositive()
		if v.IsWin {
			stats.WinnersCount++
			couponWins[v.CouponID] = couponWins[v.CouponID].Add(win.Amount)
			entities.TrackBest(&stats.BestMultiplier, &stats.BiggestWin, win.Amount, win.Multiplier)
		}
	}
	if len(variants) > 0 {
		if err := e.variantRepo.UpdateResults(ctx, variants); err != nil {
			return nil, fmt.Errorf("failed to update variant results: %w", err)
		}
	}

	userWinnings := applyCouponResults(coupons, couponWins)
	if len(coupons) > 0 {
		if err := e.couponRepo.UpdateResults(ctx, coupons); err != nil {
			return nil, fmt.Errorf("failed to update coupon results: %w", err)
		}
	}

	if err := e.creditWinners(ctx, round.ID, userWinnings); err != nil {
		return nil, err
	}

	if err := e.jackpotRepo.SetAmount(ctx, plan.JackpotAfter); err != nil {
		return nil, fmt.Errorf("failed to update jackpot: %w", err)
	}

	biggestWinUpdated, err := e.updateBiggestWin(ctx, round.ID, stats.BiggestWin)
	if err != nil {
		return nil, err
	}

	if err := e.statsRepo.Create(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to create round stats: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":       round.ID,
		"policy":        plan.Policy,
		"totalPool":     input.TotalPool.StringFixed(2),
		"payoutPool":    plan.PayoutPool.StringFixed(2),
		"totalWin":      plan.TotalWin.StringFixed(2),
		"jackpotBefore": plan.JackpotBefore.StringFixed(2),
		"jackpotAfter":  plan.JackpotAfter.StringFixed(2),
		"winningUsers":  len(userWinnings),
	}).Info("Round settled")

	return &interfaces.SettlementResult{
		RoundID:           round.ID,
		Plan:              plan,
		Stats:             stats,
		UserWinnings:      userWinnings,
		BiggestWinUpdated: biggestWinUpdated,
	}, nil
}

// applyCouponResults stamps win totals on coupons and leaves only each user's
// best winning coupon unseen, ties going to the newest coupon. Returns the
// total won per user.
func applyCouponResults(coupons []*entities.Coupon, couponWins map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	userWinnings := make(map[int64]decimal.Decimal)
	best := make(map[int64]*entities.Coupon)

	for _, c := range coupons {
		total := couponWins[c.ID]
		c.WinAmountTotal = total
		c.IsWinner = total.IsPositive()
		c.IsSeen = true
		if !c.IsWinner {
			continue
		}

		userWinnings[c.UserID] = userWinnings[c.UserID].Add(total)
		current, ok := best[c.UserID]
		if !ok || total.GreaterThan(current.WinAmountTotal) ||
			(total.Equal(current.WinAmountTotal) && c.ID > current.ID) {
			best[c.UserID] = c
		}
	}

	for _, c := range best {
		c.IsSeen = false
	}
	return userWinnings
}

// creditWinners applies one atomic balance increment per winning user
func (e *payoutEngine) creditWinners(ctx context.Context, roundID int64, userWinnings map[int64]decimal.Decimal) error {
	userIDs := make([]int64, 0, len(userWinnings))
	for id := range userWinnings {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	for _, userID := range userIDs {
		delta := userWinnings[userID]
		newBalance, err := e.userRepo.AdjustBalance(ctx, userID, delta)
		if err != nil {
			return fmt.Errorf("failed to credit user %d: %w", userID, err)
		}

		history := &entities.BalanceHistory{
			UserID:          userID,
			BalanceBefore:   newBalance.Sub(delta),
			BalanceAfter:    newBalance,
			ChangeAmount:    delta,
			TransactionType: entities.TransactionTypeRoundWin,
			TransactionMetadata: map[string]any{
				"round_id": roundID,
			},
		}
		history.Relate(entities.RelatedTypeRound, roundID)
		if err := utils.RecordBalanceChange(ctx, e.balanceHistoryRepo, e.eventPublisher, history); err != nil {
			return fmt.Errorf("failed to record balance change: %w", err)
		}
	}
	return nil
}

// updateBiggestWin overwrites the all-time record when the round's largest
// win beats it or the record has gone stale
func (e *payoutEngine) updateBiggestWin(ctx context.Context, roundID int64, biggest entities.WinObservation) (bool, error) {
	if !biggest.Sum.IsPositive() {
		return false, nil
	}

	record, err := e.biggestWinRepo.GetForUpdate(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to lock biggest win: %w", err)
	}

	now := e.now()
	if !record.ShouldReplace(biggest.Sum, now, e.biggestWinTTL) {
		return false, nil
	}

	previous := record.Amount
	record.Replace(biggest.Sum, biggest.X, roundID, now)
	if err := e.biggestWinRepo.Update(ctx, record); err != nil {
		return false, fmt.Errorf("failed to update biggest win: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":  roundID,
		"amount":   biggest.Sum.StringFixed(2),
		"previous": previous.StringFixed(2),
	}).Info("Biggest win record replaced")
	return true, nil
}
