package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/domain/services"

	log "github.com/sirupsen/logrus"
)

// roundWorkerLeaseKey names the lease shared by every worker process
const roundWorkerLeaseKey = "round-worker"

// WorkerLease lets one process at a time drive the round lifecycle
type WorkerLease interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// RoundWorker drives rounds through their lifecycle on timers: it keeps the
// lookahead buffer full, closes expired betting windows, resolves and settles
// rounds, and opens the next round
type RoundWorker struct {
	uowFactory   UnitOfWorkFactory
	drawer       interfaces.OutcomeDrawer
	policy       interfaces.PayoutPolicy
	cfg          EngineConfig
	pollInterval time.Duration
	lease        WorkerLease
	metrics      Metrics
	now          func() time.Time
}

// NewRoundWorker creates a round worker. lease and metrics may be nil.
func NewRoundWorker(
	uowFactory UnitOfWorkFactory,
	drawer interfaces.OutcomeDrawer,
	cfg EngineConfig,
	pollInterval time.Duration,
	lease WorkerLease,
	metrics Metrics,
) (*RoundWorker, error) {
	policy, err := services.NewPayoutPolicy(cfg.PayoutPolicy, cfg.HouseFeePercent)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout policy: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &RoundWorker{
		uowFactory:   uowFactory,
		drawer:       drawer,
		policy:       policy,
		cfg:          cfg,
		pollInterval: pollInterval,
		lease:        lease,
		metrics:      metrics,
		now:          time.Now,
	}, nil
}

// Start begins the round worker and returns a function that stops it. The
// stop function blocks until the current tick has finished.
func (w *RoundWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)

		log.WithFields(log.Fields{
			"policy":       w.policy.Name(),
			"pollInterval": w.pollInterval,
		}).Info("Round worker started")

		for {
			if err := w.Tick(ctx); err != nil {
				log.WithError(err).Error("Round worker tick failed")
			}

			wait := w.nextWait(ctx)
			select {
			case <-ctx.Done():
				log.Info("Round worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Round worker shutting down (stop requested)...")
				return
			case <-time.After(wait):
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		<-doneChan
	}
}

// Tick runs one pass over the lifecycle. Every step commits on its own so a
// failure in one round never blocks the others.
func (w *RoundWorker) Tick(ctx context.Context) error {
	if w.lease != nil {
		release, acquired, err := w.lease.TryAcquire(ctx, roundWorkerLeaseKey, 3*w.pollInterval)
		if err != nil {
			return fmt.Errorf("failed to acquire worker lease: %w", err)
		}
		if !acquired {
			log.Debug("Another worker holds the lease, skipping tick")
			return nil
		}
		defer release()
	}

	var errs []error
	if err := w.ensureLookahead(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := w.closeExpiredRounds(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := w.settleCalculationRounds(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := w.startNextRound(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *RoundWorker) ensureLookahead(ctx context.Context) error {
	return withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		created, err := newRoundScheduler(uow, w.cfg).EnsureLookahead(ctx)
		if errors.Is(err, entities.ErrNotEnoughTeams) {
			log.WithError(err).Warn("Cannot generate rounds")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to ensure round lookahead: %w", err)
		}
		if created > 0 {
			log.WithField("created", created).Info("Generated waiting rounds")
		}
		return nil
	})
}

func (w *RoundWorker) closeExpiredRounds(ctx context.Context) error {
	rounds, err := w.roundsInStatus(ctx, entities.RoundStatusSelection)
	if err != nil {
		return err
	}

	now := w.now()
	for _, round := range rounds {
		if !round.SelectionExpired(now) {
			continue
		}

		err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
			_, err := newRoundService(uow, w.cfg, w.policy).CloseSelection(ctx, round.ID, false)
			return err
		})
		switch {
		case err == nil:
			w.metrics.RecordRoundTransition(string(entities.RoundStatusCalculation))
		case errors.Is(err, entities.ErrSelectionStillOpen), errors.Is(err, entities.ErrInvalidTransition):
			log.WithField("roundID", round.ID).Debug("Round already closed or still open")
		default:
			return fmt.Errorf("failed to close round %d: %w", round.ID, err)
		}
	}
	return nil
}

// settleCalculationRounds resolves and settles every round in calculation.
// A round whose results were committed by an earlier tick goes straight to
// settlement.
func (w *RoundWorker) settleCalculationRounds(ctx context.Context) error {
	rounds, err := w.roundsInStatus(ctx, entities.RoundStatusCalculation)
	if err != nil {
		return err
	}

	var errs []error
	for _, round := range rounds {
		if err := w.resolveRound(ctx, round.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := w.settleRound(ctx, round.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *RoundWorker) resolveRound(ctx context.Context, roundID int64) error {
	var matches []*entities.Match
	err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		var err error
		matches, err = uow.MatchRepository().GetByRound(ctx, roundID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get matches of round %d: %w", roundID, err)
	}

	if entities.AllResolved(matches) {
		log.WithField("roundID", roundID).Info("Round already resolved, resuming settlement")
		return nil
	}
	if entities.AnyResolved(matches) {
		return fmt.Errorf("round %d is partially resolved: %w", roundID, entities.ErrMatchAlreadyResolved)
	}

	// the draw may call out to the network, keep it outside any transaction
	outcomes := w.drawer.Draw(ctx, len(matches))

	err = withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		_, err := newRoundService(uow, w.cfg, w.policy).ResolveMatches(ctx, roundID, outcomes)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to resolve round %d: %w", roundID, err)
	}
	return nil
}

func (w *RoundWorker) settleRound(ctx context.Context, roundID int64) error {
	start := w.now()

	var result *interfaces.SettlementResult
	err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		var err error
		result, err = newRoundService(uow, w.cfg, w.policy).Settle(ctx, roundID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to settle round %d: %w", roundID, err)
	}

	w.metrics.RecordRoundTransition(string(entities.RoundStatusFinished))
	w.metrics.RecordSettlement(string(w.policy.Name()), w.now().Sub(start))
	w.metrics.SetJackpot(result.Plan.JackpotAfter.InexactFloat64())

	log.WithFields(log.Fields{
		"roundID":      roundID,
		"policy":       result.Plan.Policy,
		"totalWin":     result.Plan.TotalWin.StringFixed(2),
		"winningUsers": result.WinningUsers(),
		"jackpot":      result.Plan.JackpotAfter.StringFixed(2),
	}).Info("Round settled")
	return nil
}

func (w *RoundWorker) startNextRound(ctx context.Context) error {
	var started *entities.Round
	err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		current, err := uow.RoundRepository().GetCurrent(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current round: %w", err)
		}
		if current != nil {
			return nil
		}

		started, err = newRoundService(uow, w.cfg, w.policy).StartNextRound(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to start next round: %w", err)
	}
	if started != nil {
		w.metrics.RecordRoundTransition(string(entities.RoundStatusSelection))
	}
	return nil
}

func (w *RoundWorker) roundsInStatus(ctx context.Context, status entities.RoundStatus) ([]*entities.Round, error) {
	var rounds []*entities.Round
	err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		var err error
		rounds, err = uow.RoundRepository().GetByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s rounds: %w", status, err)
	}
	return rounds, nil
}

// nextWait sleeps until the next betting deadline, never longer than the
// poll interval
func (w *RoundWorker) nextWait(ctx context.Context) time.Duration {
	var next *time.Time
	err := withUnitOfWork(ctx, w.uowFactory, func(uow UnitOfWork) error {
		var err error
		next, err = uow.RoundRepository().GetNextSelectionEnd(ctx)
		return err
	})
	if err != nil {
		log.WithError(err).Error("Failed to get next selection end")
		return w.pollInterval
	}
	if next == nil {
		return w.pollInterval
	}

	wait := next.Sub(w.now())
	switch {
	case wait <= 0:
		return 10 * time.Millisecond
	case wait > w.pollInterval:
		return w.pollInterval
	default:
		return wait
	}
}
