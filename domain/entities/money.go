package entities

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of minor-unit decimal places for every amount
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount half-up to the currency's minor unit.
// Amounts in this system are never negative at a rounding boundary, so
// decimal's half-away-from-zero rounding is half-up here.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ValidateStake checks that a per-variant stake is positive and already
// expressed in minor units
func ValidateStake(stake decimal.Decimal) error {
	if !stake.IsPositive() {
		return ErrInvalidStake
	}
	if !stake.Equal(RoundMoney(stake)) {
		return ErrInvalidStake
	}
	return nil
}

// Percent returns pct percent of amount, rounded to minor units
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}
