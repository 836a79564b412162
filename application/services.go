package application

import (
	"context"
	"fmt"
	"time"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/domain/services"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EngineConfig holds the settings every round engine service is built with
type EngineConfig struct {
	PayoutPolicy         entities.PayoutPolicyName
	HouseFeePercent      decimal.Decimal
	BiggestWinTTL        time.Duration
	SelectionDuration    time.Duration
	RoundLookahead       int
	MatchesPerRound      int
	MaxVariantsPerCoupon int
	StartingBalance      decimal.Decimal
}

// Metrics is the subset of the metrics provider the application records to
type Metrics interface {
	RecordCouponPlaced(numVariants int)
	RecordRoundTransition(status string)
	RecordSettlement(policy string, duration time.Duration)
	SetJackpot(amount float64)
}

// noopMetrics discards everything
type noopMetrics struct{}

func (noopMetrics) RecordCouponPlaced(int)                 {}
func (noopMetrics) RecordRoundTransition(string)           {}
func (noopMetrics) RecordSettlement(string, time.Duration) {}
func (noopMetrics) SetJackpot(float64)                     {}

// withUnitOfWork runs fn in a fresh unit of work, committing on success
func withUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := uow.Rollback(); err != nil {
			log.WithError(err).Error("Failed to roll back unit of work")
		}
	}()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// newRoundService builds the round state machine on the repositories of uow
func newRoundService(uow UnitOfWork, cfg EngineConfig, policy interfaces.PayoutPolicy) interfaces.RoundService {
	resolver := services.NewMatchResolver(uow.RoundRepository(), uow.MatchRepository())
	calculator := services.NewMatchedCountCalculator(uow.MatchRepository(), uow.BetVariantRepository())
	engine := services.NewPayoutEngine(
		uow.MatchRepository(),
		uow.CouponRepository(),
		uow.BetVariantRepository(),
		uow.PayoutCategoryRepository(),
		uow.JackpotRepository(),
		uow.BiggestWinRepository(),
		uow.RoundStatsRepository(),
		uow.UserRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		policy,
		cfg.BiggestWinTTL,
	)
	return services.NewRoundService(
		uow.RoundRepository(),
		resolver,
		calculator,
		engine,
		uow.EventBus(),
		cfg.SelectionDuration,
	)
}

func newRoundScheduler(uow UnitOfWork, cfg EngineConfig) interfaces.RoundScheduler {
	return services.NewRoundScheduler(
		uow.RoundRepository(),
		uow.MatchRepository(),
		uow.TeamRepository(),
		cfg.RoundLookahead,
		cfg.MatchesPerRound,
	)
}

func newCouponService(uow UnitOfWork, cfg EngineConfig) interfaces.CouponService {
	return services.NewCouponService(
		uow.RoundRepository(),
		uow.MatchRepository(),
		uow.UserRepository(),
		uow.CouponRepository(),
		uow.BetVariantRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		cfg.MaxVariantsPerCoupon,
	)
}

func newStatsService(uow UnitOfWork) interfaces.StatsService {
	return services.NewStatsService(
		uow.RoundRepository(),
		uow.MatchRepository(),
		uow.RoundStatsRepository(),
		uow.CouponRepository(),
		uow.BetVariantRepository(),
		uow.JackpotRepository(),
		uow.BiggestWinRepository(),
		uow.PayoutCategoryRepository(),
	)
}

func newUserService(uow UnitOfWork, cfg EngineConfig) interfaces.UserService {
	return services.NewUserService(
		uow.UserRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		cfg.StartingBalance,
	)
}
