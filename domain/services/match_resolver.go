package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// matchResolver writes a round's results exactly once
type matchResolver struct {
	roundRepo interfaces.RoundRepository
	matchRepo interfaces.MatchRepository
}

// NewMatchResolver creates a new match resolver
func NewMatchResolver(roundRepo interfaces.RoundRepository, matchRepo interfaces.MatchRepository) interfaces.MatchResolver {
	return &matchResolver{
		roundRepo: roundRepo,
		matchRepo: matchRepo,
	}
}

// Resolve assigns outcomes to the round's matches in ID order. Either every
// match is written or none is.
func (r *matchResolver) Resolve(ctx context.Context, roundID int64, outcomes []entities.Outcome) ([]*entities.Match, error) {
	matches, err := r.matchRepo.GetByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	if len(outcomes) != len(matches) {
		return nil, fmt.Errorf("%w: got %d results for %d matches", entities.ErrResultCountMismatch, len(outcomes), len(matches))
	}
	if entities.AnyResolved(matches) {
		return nil, entities.ErrMatchAlreadyResolved
	}

	normalized := make([]entities.Outcome, len(outcomes))
	results := make(map[int64]entities.Outcome, len(matches))
	for i, m := range matches {
		outcome, err := entities.ParseOutcome(string(outcomes[i]))
		if err != nil {
			return nil, err
		}
		normalized[i] = outcome
		results[m.ID] = outcome
	}

	written, err := r.matchRepo.SetResults(ctx, roundID, results)
	if err != nil {
		return nil, fmt.Errorf("failed to set match results: %w", err)
	}
	if written != int64(len(matches)) {
		return nil, entities.ErrMatchAlreadyResolved
	}

	for i, m := range matches {
		result := normalized[i]
		m.Result = &result
	}

	hash := GameHash(roundID, normalized)
	if err := r.roundRepo.SetGameHash(ctx, roundID, hash); err != nil {
		return nil, fmt.Errorf("failed to set game hash: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":  roundID,
		"results":  joinOutcomes(normalized),
		"gameHash": hash,
	}).Info("Resolved round matches")

	return matches, nil
}

// GameHash fingerprints a round's results for later audit
func GameHash(roundID int64, outcomes []entities.Outcome) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", roundID, joinOutcomes(outcomes))))
	return hex.EncodeToString(sum[:])
}

func joinOutcomes(outcomes []entities.Outcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		b.WriteString(string(o))
	}
	return b.String()
}
