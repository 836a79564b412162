package services

import (
	"context"
	"fmt"
	"math/rand"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRoundLookahead  = 8
	DefaultMatchesPerRound = 10
)

// roundScheduler keeps a buffer of waiting rounds with generated fixtures
type roundScheduler struct {
	roundRepo       interfaces.RoundRepository
	matchRepo       interfaces.MatchRepository
	teamRepo        interfaces.TeamRepository
	lookahead       int
	matchesPerRound int
	shuffle         func(n int, swap func(i, j int))
}

// NewRoundScheduler creates a new round scheduler
func NewRoundScheduler(
	roundRepo interfaces.RoundRepository,
	matchRepo interfaces.MatchRepository,
	teamRepo interfaces.TeamRepository,
	lookahead int,
	matchesPerRound int,
) interfaces.RoundScheduler {
	if lookahead <= 0 {
		lookahead = DefaultRoundLookahead
	}
	if matchesPerRound <= 0 {
		matchesPerRound = DefaultMatchesPerRound
	}
	return &roundScheduler{
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		teamRepo:        teamRepo,
		lookahead:       lookahead,
		matchesPerRound: matchesPerRound,
		shuffle:         rand.Shuffle,
	}
}

func (s *roundScheduler) EnsureLookahead(ctx context.Context) (int, error) {
	unfinished, err := s.roundRepo.CountUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished rounds: %w", err)
	}

	missing := s.lookahead - unfinished
	if missing <= 0 {
		return 0, nil
	}

	teams, err := s.teamRepo.GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get active teams: %w", err)
	}
	if len(teams) < 2*s.matchesPerRound {
		return 0, fmt.Errorf("%w: have %d, need %d", entities.ErrNotEnoughTeams, len(teams), 2*s.matchesPerRound)
	}

	for i := 0; i < missing; i++ {
		round := &entities.Round{
			Status:   entities.RoundStatusWaiting,
			LivePool: decimal.Zero,
		}
		if err := s.roundRepo.Create(ctx, round); err != nil {
			return i, fmt.Errorf("failed to create round: %w", err)
		}

		if err := s.matchRepo.CreateBatch(ctx, s.pairTeams(round.ID, teams)); err != nil {
			return i, fmt.Errorf("failed to create matches: %w", err)
		}

		log.WithFields(log.Fields{
			"roundID": round.ID,
			"matches": s.matchesPerRound,
		}).Info("Generated waiting round")
	}

	return missing, nil
}

// pairTeams shuffles the teams and pairs them off into fixtures
func (s *roundScheduler) pairTeams(roundID int64, teams []*entities.Team) []*entities.Match {
	shuffled := make([]*entities.Team, len(teams))
	copy(shuffled, teams)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	matches := make([]*entities.Match, 0, s.matchesPerRound)
	for i := 0; i < s.matchesPerRound; i++ {
		home, away := shuffled[2*i], shuffled[2*i+1]
		matches = append(matches, &entities.Match{
			RoundID:   roundID,
			Team1ID:   home.ID,
			Team2ID:   away.ID,
			Team1Name: home.Name,
			Team2Name: away.Name,
		})
	}
	return matches
}
