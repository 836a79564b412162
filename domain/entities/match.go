package entities

import (
	"time"
)

// Outcome is a match result symbol
type Outcome string

const (
	OutcomeWin1 Outcome = "1"
	OutcomeDraw Outcome = "X"
	OutcomeWin2 Outcome = "2"
)

// AllOutcomes lists outcomes in canonical order
var AllOutcomes = []Outcome{OutcomeWin1, OutcomeDraw, OutcomeWin2}

// ParseOutcome validates a symbol. Lower-case "x" is accepted for draws.
func ParseOutcome(symbol string) (Outcome, error) {
	switch symbol {
	case "1":
		return OutcomeWin1, nil
	case "X", "x":
		return OutcomeDraw, nil
	case "2":
		return OutcomeWin2, nil
	}
	return "", ErrInvalidOutcome
}

// OutcomeFromDraw maps a random integer in 1..3 to an outcome
func OutcomeFromDraw(n int) (Outcome, error) {
	if n < 1 || n > len(AllOutcomes) {
		return "", ErrInvalidOutcome
	}
	return AllOutcomes[n-1], nil
}

// order returns the canonical position of an outcome
func (o Outcome) order() int {
	for i, candidate := range AllOutcomes {
		if candidate == o {
			return i
		}
	}
	return len(AllOutcomes)
}

// Team is one side of a match
type Team struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Country   string    `db:"country"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// Match is one fixture within a round
type Match struct {
	ID        int64    `db:"id"`
	RoundID   int64    `db:"round_id"`
	Team1ID   int64    `db:"team1_id"`
	Team2ID   int64    `db:"team2_id"`
	Team1Name string   `db:"-"`
	Team2Name string   `db:"-"`
	Result    *Outcome `db:"result"`
}

// IsResolved returns true once the match has a result
func (m *Match) IsResolved() bool {
	return m.Result != nil
}

// AllResolved returns true if every match has a result
func AllResolved(matches []*Match) bool {
	for _, m := range matches {
		if !m.IsResolved() {
			return false
		}
	}
	return true
}

// AnyResolved returns true if at least one match has a result
func AnyResolved(matches []*Match) bool {
	for _, m := range matches {
		if m.IsResolved() {
			return true
		}
	}
	return false
}

// ResultMap indexes the resolved results of matches by match ID
func ResultMap(matches []*Match) map[int64]Outcome {
	results := make(map[int64]Outcome, len(matches))
	for _, m := range matches {
		if m.Result != nil {
			results[m.ID] = *m.Result
		}
	}
	return results
}
