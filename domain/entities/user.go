package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a bettor with a cached balance
type User struct {
	ID        int64           `db:"id"`
	Username  string          `db:"username"`
	Balance   decimal.Decimal `db:"balance_cached"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CanAfford checks if the user has sufficient balance for an amount
func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}
