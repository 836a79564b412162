package repository

import (
	"context"
	"errors"
	"fmt"

	"totopool/application"
	"totopool/database"
	"totopool/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface over a single pgx transaction
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	eventPublisher     interfaces.EventPublisher
	userRepo           interfaces.UserRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	roundRepo          interfaces.RoundRepository
	matchRepo          interfaces.MatchRepository
	teamRepo           interfaces.TeamRepository
	couponRepo         interfaces.CouponRepository
	variantRepo        interfaces.BetVariantRepository
	categoryRepo       interfaces.PayoutCategoryRepository
	jackpotRepo        interfaces.JackpotRepository
	biggestWinRepo     interfaces.BiggestWinRepository
	statsRepo          interfaces.RoundStatsRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a UnitOfWork whose EventBus is the given
// publisher
func (f *unitOfWorkFactory) CreateWithPublisher(eventPublisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:             f.db,
		eventPublisher: eventPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx)
	u.roundRepo = newRoundRepository(tx)
	u.matchRepo = newMatchRepository(tx)
	u.teamRepo = newTeamRepository(tx)
	u.couponRepo = newCouponRepository(tx)
	u.variantRepo = newBetVariantRepository(tx)
	u.categoryRepo = newPayoutCategoryRepository(tx)
	u.jackpotRepo = newJackpotRepository(tx)
	u.biggestWinRepo = newBiggestWinRepository(tx)
	u.statsRepo = newRoundStatsRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction. Rolling back twice, or after a
// commit, is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

func (u *unitOfWork) MatchRepository() interfaces.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

func (u *unitOfWork) TeamRepository() interfaces.TeamRepository {
	if u.teamRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.teamRepo
}

func (u *unitOfWork) CouponRepository() interfaces.CouponRepository {
	if u.couponRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.couponRepo
}

func (u *unitOfWork) BetVariantRepository() interfaces.BetVariantRepository {
	if u.variantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.variantRepo
}

func (u *unitOfWork) PayoutCategoryRepository() interfaces.PayoutCategoryRepository {
	if u.categoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.categoryRepo
}

func (u *unitOfWork) JackpotRepository() interfaces.JackpotRepository {
	if u.jackpotRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.jackpotRepo
}

func (u *unitOfWork) BiggestWinRepository() interfaces.BiggestWinRepository {
	if u.biggestWinRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.biggestWinRepo
}

func (u *unitOfWork) RoundStatsRepository() interfaces.RoundStatsRepository {
	if u.statsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.statsRepo
}

// EventBus returns the publisher events of this unit of work go to
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventPublisher == nil {
		panic("unit of work has no event publisher")
	}
	return u.eventPublisher
}
