package application

import (
	"context"

	"totopool/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases pending events
	Commit() error

	// Rollback rolls back the transaction and drops pending events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	RoundRepository() interfaces.RoundRepository
	MatchRepository() interfaces.MatchRepository
	TeamRepository() interfaces.TeamRepository
	CouponRepository() interfaces.CouponRepository
	BetVariantRepository() interfaces.BetVariantRepository
	PayoutCategoryRepository() interfaces.PayoutCategoryRepository
	JackpotRepository() interfaces.JackpotRepository
	BiggestWinRepository() interfaces.BiggestWinRepository
	RoundStatsRepository() interfaces.RoundStatsRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
