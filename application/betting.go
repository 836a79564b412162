package application

import (
	"context"
	"fmt"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
)

// BettingService registers users, places coupons and hands out settled wins
type BettingService struct {
	uowFactory UnitOfWorkFactory
	cfg        EngineConfig
	metrics    Metrics
}

// NewBettingService creates a betting service. metrics may be nil.
func NewBettingService(uowFactory UnitOfWorkFactory, cfg EngineConfig, metrics Metrics) *BettingService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &BettingService{
		uowFactory: uowFactory,
		cfg:        cfg,
		metrics:    metrics,
	}
}

// PlaceCoupon validates and stores a coupon in its own transaction. The
// CouponPlaced event is released only after the commit succeeds.
func (s *BettingService) PlaceCoupon(ctx context.Context, req interfaces.PlaceCouponRequest) (*interfaces.PlaceCouponResult, error) {
	var result *interfaces.PlaceCouponResult
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		result, err = newCouponService(uow, s.cfg).PlaceCoupon(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCouponPlaced(result.NumVariants)
	return result, nil
}

// ClaimUnseenWin returns the newest winning coupon the user has not seen and
// marks all of them seen
func (s *BettingService) ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error) {
	var coupon *entities.Coupon
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		coupon, err = newStatsService(uow).ClaimUnseenWin(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim unseen win: %w", err)
	}
	return coupon, nil
}

// RegisterUser creates a user funded with the starting balance
func (s *BettingService) RegisterUser(ctx context.Context, username string) (*entities.User, error) {
	var user *entities.User
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		user, err = newUserService(uow, s.cfg).Register(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
