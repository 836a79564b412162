package utils

import (
	"context"
	"errors"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/events"
	"totopool/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// TestRecordBalanceChange tests that balance changes are recorded and events are published
func TestRecordBalanceChange(t *testing.T) {
	ctx := context.Background()

	mockBalanceHistoryRepo := new(testhelpers.MockBalanceHistoryRepository)
	mockEventPublisher := new(testhelpers.MockEventPublisher)

	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockEventPublisher.On("Publish", mock.MatchedBy(func(event interface{}) bool {
		e, ok := event.(events.BalanceChangeEvent)
		return ok && e.UserID == 42 && e.ChangeAmount.Equal(decimal.RequireFromString("-20.48"))
	})).Return(nil)

	history := &entities.BalanceHistory{
		UserID:          42,
		BalanceBefore:   decimal.RequireFromString("100.00"),
		BalanceAfter:    decimal.RequireFromString("79.52"),
		ChangeAmount:    decimal.RequireFromString("-20.48"),
		TransactionType: entities.TransactionTypeCouponStake,
	}

	err := RecordBalanceChange(ctx, mockBalanceHistoryRepo, mockEventPublisher, history)
	assert.NoError(t, err)

	mockBalanceHistoryRepo.AssertExpectations(t)
	mockEventPublisher.AssertExpectations(t)
}

// TestRecordBalanceChangeUserCreatedEvent tests that user created events are published for initial balances
func TestRecordBalanceChangeUserCreatedEvent(t *testing.T) {
	ctx := context.Background()

	mockBalanceHistoryRepo := new(testhelpers.MockBalanceHistoryRepository)
	mockEventPublisher := new(testhelpers.MockEventPublisher)

	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockEventPublisher.On("Publish", mock.MatchedBy(func(event interface{}) bool {
		_, ok := event.(events.BalanceChangeEvent)
		return ok
	})).Return(nil)
	mockEventPublisher.On("Publish", mock.MatchedBy(func(event interface{}) bool {
		e, ok := event.(events.UserCreatedEvent)
		return ok && e.Username == "TestUser"
	})).Return(nil)

	history := &entities.BalanceHistory{
		UserID:          42,
		BalanceBefore:   decimal.Zero,
		BalanceAfter:    decimal.NewFromInt(1000),
		ChangeAmount:    decimal.NewFromInt(1000),
		TransactionType: entities.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": "TestUser",
		},
	}

	err := RecordBalanceChange(ctx, mockBalanceHistoryRepo, mockEventPublisher, history)
	assert.NoError(t, err)

	mockBalanceHistoryRepo.AssertExpectations(t)
	mockEventPublisher.AssertExpectations(t)
}

func TestRecordBalanceChangeRepositoryError(t *testing.T) {
	ctx := context.Background()

	mockBalanceHistoryRepo := new(testhelpers.MockBalanceHistoryRepository)
	mockEventPublisher := new(testhelpers.MockEventPublisher)

	mockBalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(errors.New("database error"))

	err := RecordBalanceChange(ctx, mockBalanceHistoryRepo, mockEventPublisher, &entities.BalanceHistory{UserID: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record balance history")

	mockEventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}
