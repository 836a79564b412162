package services

import (
	"context"
	"fmt"
	"strings"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const maxUsernameLength = 150

type userService struct {
	userRepo           interfaces.UserRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	startingBalance    decimal.Decimal
}

// NewUserService creates a user service that funds new users with
// startingBalance
func NewUserService(
	userRepo interfaces.UserRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	startingBalance decimal.Decimal,
) interfaces.UserService {
	return &userService{
		userRepo:           userRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		startingBalance:    entities.RoundMoney(startingBalance),
	}
}

// Register creates the user and records the initial balance, which also
// announces the new user
func (s *userService) Register(ctx context.Context, username string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return nil, entities.ErrInvalidUsername
	}

	user, err := s.userRepo.Create(ctx, username, s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	history := &entities.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   decimal.Zero,
		BalanceAfter:    user.Balance,
		ChangeAmount:    user.Balance,
		TransactionType: entities.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": username,
		},
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   user.ID,
		"username": username,
		"balance":  user.Balance.StringFixed(2),
	}).Info("User registered")
	return user, nil
}
