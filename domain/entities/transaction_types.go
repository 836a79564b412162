package entities

// TransactionType represents the type of balance change
type TransactionType string

// All transaction types supported by the system
const (
	TransactionTypeCouponStake TransactionType = "coupon_stake"
	TransactionTypeRoundWin    TransactionType = "round_win"

	// System transactions
	TransactionTypeInitial    TransactionType = "initial"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// IsWinType returns true if the transaction type represents a win
func (tt TransactionType) IsWinType() bool {
	return tt == TransactionTypeRoundWin
}

// IsSystemGenerated returns true if the transaction type is system-generated
func (tt TransactionType) IsSystemGenerated() bool {
	return tt == TransactionTypeInitial || tt == TransactionTypeAdjustment
}
