package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// SingletonID is the primary key of the jackpot and biggest-win rows
const SingletonID int64 = 1

// Jackpot is the carry-forward reserve fed by unclaimed tier funds
type Jackpot struct {
	ID        int64           `db:"id"`
	Amount    decimal.Decimal `db:"amount"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// BiggestWin is the rolling record of the largest single-variant win
type BiggestWin struct {
	ID         int64           `db:"id"`
	Amount     decimal.Decimal `db:"amount"`
	Multiplier decimal.Decimal `db:"multiplier"`
	RoundID    *int64          `db:"round_id"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// ShouldReplace reports whether a round's largest win overwrites the record.
// A larger win always does. Once the record is older than ttl any new win
// replaces it, even a smaller one.
func (b *BiggestWin) ShouldReplace(amount decimal.Decimal, now time.Time, ttl time.Duration) bool {
	if !amount.IsPositive() {
		return false
	}
	if amount.GreaterThan(b.Amount) {
		return true
	}
	return !now.Before(b.UpdatedAt.Add(ttl))
}

// Replace overwrites the record with a new observation
func (b *BiggestWin) Replace(amount, multiplier decimal.Decimal, roundID int64, now time.Time) {
	b.Amount = amount
	b.Multiplier = multiplier
	b.RoundID = &roundID
	b.UpdatedAt = now
}
