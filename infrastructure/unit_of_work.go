package infrastructure

import (
	"context"

	"totopool/application"
	"totopool/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and releases queued events
// only after a successful commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success. Events are
// best-effort once the data is committed.
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		return err
	}

	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback discards pending events and rolls back the transaction
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	return u.inner.UserRepository()
}

func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.inner.BalanceHistoryRepository()
}

func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	return u.inner.RoundRepository()
}

func (u *unitOfWork) MatchRepository() interfaces.MatchRepository {
	return u.inner.MatchRepository()
}

func (u *unitOfWork) TeamRepository() interfaces.TeamRepository {
	return u.inner.TeamRepository()
}

func (u *unitOfWork) CouponRepository() interfaces.CouponRepository {
	return u.inner.CouponRepository()
}

func (u *unitOfWork) BetVariantRepository() interfaces.BetVariantRepository {
	return u.inner.BetVariantRepository()
}

func (u *unitOfWork) PayoutCategoryRepository() interfaces.PayoutCategoryRepository {
	return u.inner.PayoutCategoryRepository()
}

func (u *unitOfWork) JackpotRepository() interfaces.JackpotRepository {
	return u.inner.JackpotRepository()
}

func (u *unitOfWork) BiggestWinRepository() interfaces.BiggestWinRepository {
	return u.inner.BiggestWinRepository()
}

func (u *unitOfWork) RoundStatsRepository() interfaces.RoundStatsRepository {
	return u.inner.RoundStatsRepository()
}

// EventBus returns the transactional publisher of this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
