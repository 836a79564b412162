package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeCoupon RelatedType = "coupon"
	RelatedTypeRound  RelatedType = "round"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount.IsPositive()
}

// IsNegativeChange returns true if the change amount is negative
func (bh *BalanceHistory) IsNegativeChange() bool {
	return bh.ChangeAmount.IsNegative()
}

// Relate links the history entry to the entity that caused it
func (bh *BalanceHistory) Relate(relatedType RelatedType, id int64) {
	bh.RelatedType = &relatedType
	bh.RelatedID = &id
}
