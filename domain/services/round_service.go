package services

import (
	"context"
	"fmt"
	"time"

	"totopool/domain/entities"
	"totopool/domain/events"
	"totopool/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultSelectionDuration is how long betting stays open on a round
const DefaultSelectionDuration = 180 * time.Second

// roundService drives rounds through waiting, selection, calculation, payout
// and finished. Every transition is a compare-and-set on the stored status.
type roundService struct {
	roundRepo         interfaces.RoundRepository
	resolver          interfaces.MatchResolver
	calculator        interfaces.MatchedCountCalculator
	engine            interfaces.PayoutEngine
	eventPublisher    interfaces.EventPublisher
	selectionDuration time.Duration
	now               func() time.Time
}

// NewRoundService creates a new round service
func NewRoundService(
	roundRepo interfaces.RoundRepository,
	resolver interfaces.MatchResolver,
	calculator interfaces.MatchedCountCalculator,
	engine interfaces.PayoutEngine,
	eventPublisher interfaces.EventPublisher,
	selectionDuration time.Duration,
) interfaces.RoundService {
	if selectionDuration <= 0 {
		selectionDuration = DefaultSelectionDuration
	}
	return &roundService{
		roundRepo:         roundRepo,
		resolver:          resolver,
		calculator:        calculator,
		engine:            engine,
		eventPublisher:    eventPublisher,
		selectionDuration: selectionDuration,
		now:               time.Now,
	}
}

func (s *roundService) StartNextRound(ctx context.Context) (*entities.Round, error) {
	round, err := s.roundRepo.GetOldestByStatus(ctx, entities.RoundStatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting round: %w", err)
	}
	if round == nil {
		return nil, nil
	}

	now := s.now().UTC()
	ok, err := s.roundRepo.OpenSelection(ctx, round.ID, now, now.Add(s.selectionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to open selection: %w", err)
	}
	if !ok {
		return nil, entities.ErrInvalidTransition
	}
	round.OpenSelection(now, s.selectionDuration)

	s.publishTransition(round.ID, entities.RoundStatusWaiting, entities.RoundStatusSelection)
	log.WithFields(log.Fields{
		"roundID":          round.ID,
		"selectionEndTime": round.SelectionEndTime,
	}).Info("Round opened for betting")

	return round, nil
}

func (s *roundService) CloseSelection(ctx context.Context, roundID int64, force bool) (*entities.Round, error) {
	round, err := s.lockRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != entities.RoundStatusSelection {
		return nil, fmt.Errorf("%w: round %d is %s", entities.ErrInvalidTransition, roundID, round.Status)
	}
	if !force && !round.SelectionExpired(s.now()) {
		return nil, entities.ErrSelectionStillOpen
	}

	if err := s.transition(ctx, round, entities.RoundStatusCalculation); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"roundID":  round.ID,
		"livePool": round.LivePool.StringFixed(2),
		"forced":   force,
	}).Info("Round selection closed")

	return round, nil
}

func (s *roundService) ResolveMatches(ctx context.Context, roundID int64, outcomes []entities.Outcome) ([]*entities.Match, error) {
	round, err := s.lockRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != entities.RoundStatusCalculation {
		return nil, fmt.Errorf("%w: round %d is %s", entities.ErrInvalidTransition, roundID, round.Status)
	}

	return s.resolver.Resolve(ctx, roundID, outcomes)
}

// Settle moves a resolved round through payout to finished. It must run inside
// one transaction so a failure leaves the round in calculation.
func (s *roundService) Settle(ctx context.Context, roundID int64) (*interfaces.SettlementResult, error) {
	round, err := s.lockRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != entities.RoundStatusCalculation {
		return nil, fmt.Errorf("%w: round %d is %s", entities.ErrInvalidTransition, roundID, round.Status)
	}

	if err := s.transition(ctx, round, entities.RoundStatusPayout); err != nil {
		return nil, err
	}

	if _, err := s.calculator.Recompute(ctx, round.ID); err != nil {
		return nil, fmt.Errorf("failed to recompute matched counts: %w", err)
	}

	result, err := s.engine.Settle(ctx, round)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ok, err := s.roundRepo.Finish(ctx, round.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to finish round: %w", err)
	}
	if !ok {
		return nil, entities.ErrInvalidTransition
	}
	round.Status = entities.RoundStatusFinished
	round.EndTime = &now
	s.publishTransition(round.ID, entities.RoundStatusPayout, entities.RoundStatusFinished)

	if err := s.eventPublisher.Publish(events.RoundSettledEvent{
		RoundID:       round.ID,
		Policy:        result.Plan.Policy,
		TotalPool:     result.Stats.TotalPool,
		TotalWin:      result.Plan.TotalWin,
		WinningUsers:  result.WinningUsers(),
		JackpotBefore: result.Plan.JackpotBefore,
		JackpotAfter:  result.Plan.JackpotAfter,
	}); err != nil {
		log.WithError(err).Error("Failed to publish round settled event")
	}

	return result, nil
}

func (s *roundService) GetLivePool(ctx context.Context, roundID int64) (decimal.Decimal, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return decimal.Zero, entities.ErrRoundNotFound
	}
	return round.LivePool, nil
}

func (s *roundService) lockRound(ctx context.Context, roundID int64) (*entities.Round, error) {
	round, err := s.roundRepo.GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}
	return round, nil
}

// transition advances the round one step, failing if another writer moved it first
func (s *roundService) transition(ctx context.Context, round *entities.Round, to entities.RoundStatus) error {
	from := round.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", entities.ErrInvalidTransition, from, to)
	}

	ok, err := s.roundRepo.TransitionStatus(ctx, round.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition round: %w", err)
	}
	if !ok {
		return entities.ErrInvalidTransition
	}

	round.Status = to
	s.publishTransition(round.ID, from, to)
	return nil
}

func (s *roundService) publishTransition(roundID int64, from, to entities.RoundStatus) {
	if err := s.eventPublisher.Publish(events.RoundStatusChangedEvent{
		RoundID:   roundID,
		OldStatus: from,
		NewStatus: to,
	}); err != nil {
		log.WithError(err).Error("Failed to publish round status changed event")
	}
}
