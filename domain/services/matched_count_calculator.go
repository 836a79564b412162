package services

import (
	"context"
	"fmt"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// matchedCountCalculator derives every variant's matched count from the
// resolved results of its round
type matchedCountCalculator struct {
	matchRepo   interfaces.MatchRepository
	variantRepo interfaces.BetVariantRepository
}

// NewMatchedCountCalculator creates a new matched-count calculator
func NewMatchedCountCalculator(matchRepo interfaces.MatchRepository, variantRepo interfaces.BetVariantRepository) interfaces.MatchedCountCalculator {
	return &matchedCountCalculator{
		matchRepo:   matchRepo,
		variantRepo: variantRepo,
	}
}

// Recompute counts matches for every variant of the round and writes all
// counts, zeros included, in one batch. Running it twice yields the same counts.
func (c *matchedCountCalculator) Recompute(ctx context.Context, roundID int64) (map[int64]int, error) {
	matches, err := c.matchRepo.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	results := entities.ResultMap(matches)

	variants, err := c.variantRepo.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	if len(variants) == 0 {
		return map[int64]int{}, nil
	}

	picks, err := c.variantRepo.GetSelectionsByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get selections: %w", err)
	}

	counts := make(map[int64]int, len(variants))
	for _, v := range variants {
		counts[v.ID] = entities.CountMatched(picks[v.ID], results)
	}

	if err := c.variantRepo.UpdateMatchedCounts(ctx, counts); err != nil {
		return nil, fmt.Errorf("failed to update matched counts: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":  roundID,
		"variants": len(counts),
		"resolved": len(results),
	}).Debug("Recomputed matched counts")

	return counts, nil
}
