package services

import (
	"context"
	"fmt"

	"totopool/domain/entities"
	"totopool/domain/events"
	"totopool/domain/interfaces"
	"totopool/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxVariantsPerCoupon allows every outcome on ten matches
const DefaultMaxVariantsPerCoupon = 59049

// couponService implements coupon placement
type couponService struct {
	roundRepo          interfaces.RoundRepository
	matchRepo          interfaces.MatchRepository
	userRepo           interfaces.UserRepository
	couponRepo         interfaces.CouponRepository
	variantRepo        interfaces.BetVariantRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	maxVariants        int
}

// NewCouponService creates a new coupon service
func NewCouponService(
	roundRepo interfaces.RoundRepository,
	matchRepo interfaces.MatchRepository,
	userRepo interfaces.UserRepository,
	couponRepo interfaces.CouponRepository,
	variantRepo interfaces.BetVariantRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	maxVariants int,
) interfaces.CouponService {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariantsPerCoupon
	}
	return &couponService{
		roundRepo:          roundRepo,
		matchRepo:          matchRepo,
		userRepo:           userRepo,
		couponRepo:         couponRepo,
		variantRepo:        variantRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		maxVariants:        maxVariants,
	}
}

// PlaceCoupon validates the selection against the round, then grows the pool,
// debits the user and persists the coupon with all of its variants
func (s *couponService) PlaceCoupon(ctx context.Context, req interfaces.PlaceCouponRequest) (*interfaces.PlaceCouponResult, error) {
	round, err := s.roundRepo.GetByID(ctx, req.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}
	if !round.IsAcceptingBets() {
		return nil, entities.ErrRoundNotAcceptingBets
	}

	matches, err := s.matchRepo.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	selection, err := validateSelection(req.Selection, matches)
	if err != nil {
		return nil, err
	}

	if err := entities.ValidateStake(req.Stake); err != nil {
		return nil, err
	}

	numVariants := selection.CombinationCount(s.maxVariants)
	if numVariants == 0 {
		return nil, entities.ErrNoCombinations
	}
	if numVariants > s.maxVariants {
		return nil, fmt.Errorf("%w: limit is %d", entities.ErrTooManyVariants, s.maxVariants)
	}

	totalAmount := req.Stake.Mul(decimal.NewFromInt(int64(numVariants)))

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}
	if !user.CanAfford(totalAmount) {
		return nil, entities.ErrInsufficientFunds
	}

	livePool, err := s.roundRepo.IncrementLivePool(ctx, round.ID, totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to increment live pool: %w", err)
	}

	newBalance, ok, err := s.userRepo.DebitIfSufficient(ctx, user.ID, totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit user: %w", err)
	}
	if !ok {
		return nil, entities.ErrInsufficientFunds
	}

	coupon := &entities.Coupon{
		UserID:         user.ID,
		RoundID:        round.ID,
		AmountTotal:    totalAmount,
		NumVariants:    numVariants,
		WinAmountTotal: decimal.Zero,
		IsSeen:         true,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	if err := s.createVariants(ctx, coupon.ID, selection, numVariants); err != nil {
		return nil, err
	}

	history := &entities.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   newBalance.Add(totalAmount),
		BalanceAfter:    newBalance,
		ChangeAmount:    totalAmount.Neg(),
		TransactionType: entities.TransactionTypeCouponStake,
		TransactionMetadata: map[string]any{
			"round_id":     round.ID,
			"num_variants": numVariants,
			"stake":        req.Stake.StringFixed(2),
		},
	}
	history.Relate(entities.RelatedTypeCoupon, coupon.ID)
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := s.eventPublisher.Publish(events.CouponPlacedEvent{
		CouponID:    coupon.ID,
		UserID:      user.ID,
		RoundID:     round.ID,
		NumVariants: numVariants,
		AmountTotal: totalAmount,
		LivePool:    livePool,
	}); err != nil {
		log.WithError(err).Error("Failed to publish coupon placed event")
	}

	log.WithFields(log.Fields{
		"couponID":    coupon.ID,
		"userID":      user.ID,
		"roundID":     round.ID,
		"numVariants": numVariants,
		"amountTotal": totalAmount.StringFixed(2),
		"livePool":    livePool.StringFixed(2),
	}).Info("Coupon placed")

	return &interfaces.PlaceCouponResult{
		Coupon:           coupon,
		NumVariants:      numVariants,
		TotalAmount:      totalAmount,
		RemainingBalance: newBalance,
		LivePool:         livePool,
	}, nil
}

// createVariants inserts one variant per combination and binds each to its picks.
// Variant IDs come back ascending and are paired with combinations in order.
func (s *couponService) createVariants(ctx context.Context, couponID int64, selection entities.Selection, numVariants int) error {
	combinations := selection.Combinations()
	if len(combinations) != numVariants {
		return fmt.Errorf("combination count mismatch: expected %d, built %d", numVariants, len(combinations))
	}

	variantIDs, err := s.variantRepo.CreateForCoupon(ctx, couponID, numVariants)
	if err != nil {
		return fmt.Errorf("failed to create variants: %w", err)
	}
	if len(variantIDs) != numVariants {
		return fmt.Errorf("variant count mismatch: expected %d, created %d", numVariants, len(variantIDs))
	}

	selections := make([]*entities.SelectedOutcome, 0, numVariants*len(selection))
	for i, combo := range combinations {
		for _, pick := range combo {
			selections = append(selections, &entities.SelectedOutcome{
				VariantID: variantIDs[i],
				MatchID:   pick.MatchID,
				Outcome:   pick.Outcome,
			})
		}
	}

	if _, err := s.variantRepo.CreateSelections(ctx, selections); err != nil {
		return fmt.Errorf("failed to create selections: %w", err)
	}
	return nil
}

// validateSelection checks that the selection covers exactly the round's
// matches with valid symbols and returns it de-duplicated
func validateSelection(selection entities.Selection, matches []*entities.Match) (entities.Selection, error) {
	inRound := make(map[int64]bool, len(matches))
	for _, m := range matches {
		inRound[m.ID] = true
	}

	parsed := make(entities.Selection, len(selection))
	for matchID, outcomes := range selection {
		if !inRound[matchID] {
			return nil, fmt.Errorf("%w: %d", entities.ErrUnknownMatch, matchID)
		}
		picks := make([]entities.Outcome, 0, len(outcomes))
		for _, o := range outcomes {
			outcome, err := entities.ParseOutcome(string(o))
			if err != nil {
				return nil, fmt.Errorf("%w: %q", entities.ErrInvalidOutcome, o)
			}
			picks = append(picks, outcome)
		}
		parsed[matchID] = picks
	}

	for _, m := range matches {
		if len(parsed[m.ID]) == 0 {
			return nil, entities.ErrIncompleteSelection
		}
	}
	if len(matches) == 0 {
		return nil, entities.ErrIncompleteSelection
	}

	return parsed.Normalize(), nil
}
