package entities

import (
	"sort"
)

// Pick is one match-outcome choice
type Pick struct {
	MatchID int64
	Outcome Outcome
}

// Selection maps each match of a round to the outcomes a user chose for it
type Selection map[int64][]Outcome

// Normalize removes duplicate outcomes and orders each pick set canonically
func (s Selection) Normalize() Selection {
	normalized := make(Selection, len(s))
	for matchID, outcomes := range s {
		seen := make(map[Outcome]bool, len(outcomes))
		unique := make([]Outcome, 0, len(outcomes))
		for _, o := range outcomes {
			if seen[o] {
				continue
			}
			seen[o] = true
			unique = append(unique, o)
		}
		sort.Slice(unique, func(i, j int) bool {
			return unique[i].order() < unique[j].order()
		})
		normalized[matchID] = unique
	}
	return normalized
}

// MatchIDs returns the selected match IDs in ascending order
func (s Selection) MatchIDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CombinationCount returns the size of the cartesian product, stopping at
// limit+1 so callers can reject oversized selections without overflow
func (s Selection) CombinationCount(limit int) int {
	if len(s) == 0 {
		return 0
	}
	count := 1
	for _, outcomes := range s {
		count *= len(outcomes)
		if count == 0 {
			return 0
		}
		if limit > 0 && count > limit {
			return limit + 1
		}
	}
	return count
}

// Combinations expands the selection into every single-outcome combination.
// Matches are ordered by ID and outcomes canonically, so the result is
// deterministic for a given selection.
func (s Selection) Combinations() [][]Pick {
	normalized := s.Normalize()
	matchIDs := normalized.MatchIDs()
	if len(matchIDs) == 0 {
		return nil
	}

	combos := [][]Pick{{}}
	for _, matchID := range matchIDs {
		outcomes := normalized[matchID]
		if len(outcomes) == 0 {
			return nil
		}
		next := make([][]Pick, 0, len(combos)*len(outcomes))
		for _, prefix := range combos {
			for _, o := range outcomes {
				combo := make([]Pick, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, Pick{MatchID: matchID, Outcome: o}))
			}
		}
		combos = next
	}
	return combos
}
