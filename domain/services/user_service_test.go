package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("funds the new user", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		service := NewUserService(mocks.UserRepo, mocks.BalanceHistoryRepo, mocks.EventPublisher, decimal.RequireFromString("25.005"))

		created := &entities.User{ID: TestUserID, Username: "alice", Balance: decimal.RequireFromString("25.01")}
		mocks.UserRepo.On("Create", ctx, "alice", decimalEq("25.01")).Return(created, nil)
		mocks.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
			return h.UserID == TestUserID &&
				h.BalanceBefore.IsZero() &&
				h.BalanceAfter.Equal(created.Balance) &&
				h.ChangeAmount.Equal(created.Balance) &&
				h.TransactionType == entities.TransactionTypeInitial
		})).Return(nil)
		mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)
		mocks.EventPublisher.On("Publish", events.UserCreatedEvent{
			UserID:         TestUserID,
			Username:       "alice",
			InitialBalance: created.Balance,
		}).Return(nil)

		user, err := service.Register(ctx, "  alice ")

		require.NoError(t, err)
		assert.Equal(t, created, user)
		mocks.AssertAllExpectations(t)
	})

	t.Run("rejects invalid usernames", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		service := NewUserService(mocks.UserRepo, mocks.BalanceHistoryRepo, mocks.EventPublisher, decimal.Zero)

		for _, name := range []string{"", "   ", strings.Repeat("a", 151)} {
			_, err := service.Register(context.Background(), name)
			assert.True(t, errors.Is(err, entities.ErrInvalidUsername), "username %q", name)
		}
		mocks.UserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("create error", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		mocks := NewTestMocks()
		service := NewUserService(mocks.UserRepo, mocks.BalanceHistoryRepo, mocks.EventPublisher, decimal.Zero)
		mocks.UserRepo.On("Create", ctx, "bob", mock.Anything).Return(nil, errors.New("duplicate key"))

		_, err := service.Register(ctx, "bob")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate key")
		mocks.BalanceHistoryRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}
