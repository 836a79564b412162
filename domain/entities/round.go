package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStatus represents the lifecycle stage of a round
type RoundStatus string

const (
	RoundStatusWaiting     RoundStatus = "waiting"
	RoundStatusSelection   RoundStatus = "selection"
	RoundStatusCalculation RoundStatus = "calculation"
	RoundStatusPayout      RoundStatus = "payout"
	RoundStatusFinished    RoundStatus = "finished"
)

// Round represents one betting cycle over a fixed set of matches
type Round struct {
	ID               int64           `db:"id"`
	Status           RoundStatus     `db:"status"`
	StartTime        *time.Time      `db:"start_time"`
	SelectionEndTime *time.Time      `db:"selection_end_time"`
	EndTime          *time.Time      `db:"end_time"`
	LivePool         decimal.Decimal `db:"live_pool"`
	GameHash         *string         `db:"game_hash"`
	CreatedAt        time.Time       `db:"created_at"`
}

// NextStatus returns the only status a round in the given status may move to.
// Finished rounds have no successor.
func (s RoundStatus) NextStatus() (RoundStatus, bool) {
	switch s {
	case RoundStatusWaiting:
		return RoundStatusSelection, true
	case RoundStatusSelection:
		return RoundStatusCalculation, true
	case RoundStatusCalculation:
		return RoundStatusPayout, true
	case RoundStatusPayout:
		return RoundStatusFinished, true
	default:
		return "", false
	}
}

// IsValid returns true for the known statuses
func (s RoundStatus) IsValid() bool {
	switch s {
	case RoundStatusWaiting, RoundStatusSelection, RoundStatusCalculation, RoundStatusPayout, RoundStatusFinished:
		return true
	}
	return false
}

// CanTransitionTo checks the linear lifecycle: no skipping, no cycles
func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	expected, ok := s.NextStatus()
	return ok && expected == next
}

// IsActive returns true while the round is between opening and finalization
func (s RoundStatus) IsActive() bool {
	return s == RoundStatusSelection || s == RoundStatusCalculation || s == RoundStatusPayout
}

// IsAcceptingBets returns true if coupons may be placed on the round
func (r *Round) IsAcceptingBets() bool {
	return r.Status == RoundStatusSelection
}

// IsFinished returns true once the round has been settled
func (r *Round) IsFinished() bool {
	return r.Status == RoundStatusFinished
}

// SelectionExpired reports whether the betting window has closed at now
func (r *Round) SelectionExpired(now time.Time) bool {
	if r.Status != RoundStatusSelection || r.SelectionEndTime == nil {
		return false
	}
	return !now.Before(*r.SelectionEndTime)
}

// OpenSelection stamps the start of betting and its deadline
func (r *Round) OpenSelection(now time.Time, duration time.Duration) {
	end := now.Add(duration)
	r.Status = RoundStatusSelection
	r.StartTime = &now
	r.SelectionEndTime = &end
}
