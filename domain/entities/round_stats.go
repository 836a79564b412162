package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStat is the fixed-shape aggregate for one configured category
type CategoryStat struct {
	MatchedCount int             `json:"matched_count"`
	Percent      decimal.Decimal `json:"percent"`
	Coefficient  decimal.Decimal `json:"coefficient"`
	Fund         decimal.Decimal `json:"fund"`
	Winners      int             `json:"winners"`
	Payout       decimal.Decimal `json:"payout"`
	RolledOver   bool            `json:"rolled_over"`
}

// MultiplierObservation is the best multiplier seen in a round, {x, sum}
type MultiplierObservation struct {
	X   decimal.Decimal `json:"x"`
	Sum decimal.Decimal `json:"sum"`
}

// WinObservation is the biggest single win seen in a round, {sum, x}
type WinObservation struct {
	Sum decimal.Decimal `json:"sum"`
	X   decimal.Decimal `json:"x"`
}

// RoundStats is the immutable statistics record of a finished round
type RoundStats struct {
	ID              int64                 `db:"id"`
	RoundID         int64                 `db:"round_id"`
	Policy          string                `db:"policy"`
	TotalPool       decimal.Decimal       `db:"total_pool"`
	PayoutPool      decimal.Decimal       `db:"payout_pool"`
	JackpotBefore   decimal.Decimal       `db:"jackpot_before"`
	JackpotAfter    decimal.Decimal       `db:"jackpot_after"`
	JackpotAbsorbed decimal.Decimal       `db:"jackpot_absorbed"`
	RolledOver      decimal.Decimal       `db:"rolled_over"`
	TotalWin        decimal.Decimal       `db:"total_win"`
	WinnersCount    int                   `db:"winners_count"`
	Categories      []CategoryStat        `db:"categories"`
	BestMultiplier  MultiplierObservation `db:"best_multiplier"`
	BiggestWin      WinObservation        `db:"biggest_win"`
	CreatedAt       time.Time             `db:"created_at"`
}

// TrackBest folds a variant's win into the best-multiplier and biggest-win
// observations. Multiplier ties go to the larger win and win ties to the
// larger multiplier.
func TrackBest(best *MultiplierObservation, biggest *WinObservation, win, multiplier decimal.Decimal) {
	if !win.IsPositive() {
		return
	}
	if multiplier.GreaterThan(best.X) || (multiplier.Equal(best.X) && win.GreaterThan(best.Sum)) {
		best.X = multiplier
		best.Sum = win
	}
	if win.GreaterThan(biggest.Sum) || (win.Equal(biggest.Sum) && multiplier.GreaterThan(biggest.X)) {
		biggest.Sum = win
		biggest.X = multiplier
	}
}
