package services

import (
	"context"
	"fmt"
	"time"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
	DefaultTopWinsLimit = 10
	TopWinsWindow       = 7 * 24 * time.Hour
)

// statsService answers read-only questions about rounds, wins and the jackpot
type statsService struct {
	roundRepo      interfaces.RoundRepository
	matchRepo      interfaces.MatchRepository
	statsRepo      interfaces.RoundStatsRepository
	couponRepo     interfaces.CouponRepository
	variantRepo    interfaces.BetVariantRepository
	jackpotRepo    interfaces.JackpotRepository
	biggestWinRepo interfaces.BiggestWinRepository
	categoryRepo   interfaces.PayoutCategoryRepository
}

// NewStatsService creates a new stats service
func NewStatsService(
	roundRepo interfaces.RoundRepository,
	matchRepo interfaces.MatchRepository,
	statsRepo interfaces.RoundStatsRepository,
	couponRepo interfaces.CouponRepository,
	variantRepo interfaces.BetVariantRepository,
	jackpotRepo interfaces.JackpotRepository,
	biggestWinRepo interfaces.BiggestWinRepository,
	categoryRepo interfaces.PayoutCategoryRepository,
) interfaces.StatsService {
	return &statsService{
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		statsRepo:      statsRepo,
		couponRepo:     couponRepo,
		variantRepo:    variantRepo,
		jackpotRepo:    jackpotRepo,
		biggestWinRepo: biggestWinRepo,
		categoryRepo:   categoryRepo,
	}
}

// GetCurrentRound returns the active round with its matches, nil if none
func (s *statsService) GetCurrentRound(ctx context.Context) (*interfaces.RoundOverview, error) {
	round, err := s.roundRepo.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	if round == nil {
		return nil, nil
	}

	matches, err := s.matchRepo.GetByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	return &interfaces.RoundOverview{Round: round, Matches: matches}, nil
}

func (s *statsService) ListFinishedRounds(ctx context.Context, limit int) ([]*entities.Round, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rounds, err := s.roundRepo.ListFinished(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished rounds: %w", err)
	}
	return rounds, nil
}

// GetRoundStats returns the statistics of a finished round, nil while the
// round is still running
func (s *statsService) GetRoundStats(ctx context.Context, roundID int64) (*entities.RoundStats, error) {
	stats, err := s.statsRepo.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round stats: %w", err)
	}
	return stats, nil
}

func (s *statsService) GetBiggestWin(ctx context.Context) (*entities.BiggestWin, error) {
	record, err := s.biggestWinRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get biggest win: %w", err)
	}
	return record, nil
}

func (s *statsService) GetJackpot(ctx context.Context) (*entities.Jackpot, error) {
	jackpot, err := s.jackpotRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get jackpot: %w", err)
	}
	return jackpot, nil
}

// TopWins returns the largest variant wins of the last seven days
func (s *statsService) TopWins(ctx context.Context, now time.Time, limit int) ([]*entities.WinRecord, error) {
	if limit <= 0 {
		limit = DefaultTopWinsLimit
	}

	wins, err := s.variantRepo.GetTopWins(ctx, now.Add(-TopWinsWindow), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wins: %w", err)
	}
	return wins, nil
}

// ClaimUnseenWin hands the user their newest unseen win once
func (s *statsService) ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error) {
	coupon, err := s.couponRepo.ClaimUnseenWin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim unseen win: %w", err)
	}
	if coupon == nil {
		return nil, entities.ErrNoUnseenWin
	}
	return coupon, nil
}

func (s *statsService) GetUserRoundSummary(ctx context.Context, userID, roundID int64) (*entities.UserRoundSummary, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}

	summary, err := s.couponRepo.GetUserRoundSummary(ctx, userID, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user round summary: %w", err)
	}
	return summary, nil
}

func (s *statsService) GetActiveCategories(ctx context.Context) ([]*entities.PayoutCategory, error) {
	categories, err := s.categoryRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active categories: %w", err)
	}
	if err := entities.ValidateCategories(categories); err != nil {
		return nil, fmt.Errorf("%w: sum is %s", err, entities.TotalPercent(categories).String())
	}
	return categories, nil
}
