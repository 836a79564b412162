package events

import (
	"totopool/domain/entities"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUserCreated        EventType = "user_created"
	EventTypeCouponPlaced       EventType = "coupon_placed"
	EventTypeRoundStatusChanged EventType = "round_status_changed"
	EventTypeRoundSettled       EventType = "round_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      decimal.Decimal
	NewBalance      decimal.Decimal
	TransactionType entities.TransactionType
	ChangeAmount    decimal.Decimal
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64
	Username       string
	InitialBalance decimal.Decimal
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// CouponPlacedEvent is emitted once a coupon and its variants are persisted
type CouponPlacedEvent struct {
	CouponID    int64
	UserID      int64
	RoundID     int64
	NumVariants int
	AmountTotal decimal.Decimal
	LivePool    decimal.Decimal
}

func (e CouponPlacedEvent) Type() EventType {
	return EventTypeCouponPlaced
}

// RoundStatusChangedEvent represents a round lifecycle transition
type RoundStatusChangedEvent struct {
	RoundID   int64
	OldStatus entities.RoundStatus
	NewStatus entities.RoundStatus
}

func (e RoundStatusChangedEvent) Type() EventType {
	return EventTypeRoundStatusChanged
}

// RoundSettledEvent summarizes a finished round
type RoundSettledEvent struct {
	RoundID       int64
	Policy        entities.PayoutPolicyName
	TotalPool     decimal.Decimal
	TotalWin      decimal.Decimal
	WinningUsers  int
	JackpotBefore decimal.Decimal
	JackpotAfter  decimal.Decimal
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}
