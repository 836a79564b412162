package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"totopool/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLease struct {
	acquired bool
	err      error
	calls    int
	released int
	lastTTL  time.Duration
}

func (l *fakeLease) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.calls++
	l.lastTTL = ttl
	if l.err != nil || !l.acquired {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

// panicFactory fails the test if the worker opens a unit of work
type panicFactory struct{}

func (panicFactory) Create() UnitOfWork {
	panic("unit of work must not be created")
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		PayoutPolicy:         entities.PayoutPolicyPoolShare,
		HouseFeePercent:      decimal.NewFromInt(5),
		BiggestWinTTL:        7 * 24 * time.Hour,
		SelectionDuration:    3 * time.Minute,
		RoundLookahead:       2,
		MatchesPerRound:      10,
		MaxVariantsPerCoupon: 59049,
	}
}

func TestNewRoundWorker(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		worker, err := NewRoundWorker(panicFactory{}, nil, testEngineConfig(), 0, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, worker.pollInterval)
		assert.Equal(t, entities.PayoutPolicyPoolShare, worker.policy.Name())
		assert.IsType(t, noopMetrics{}, worker.metrics)
	})

	t.Run("unknown policy", func(t *testing.T) {
		t.Parallel()

		cfg := testEngineConfig()
		cfg.PayoutPolicy = "fixed_odds"

		_, err := NewRoundWorker(panicFactory{}, nil, cfg, time.Second, nil, nil)

		assert.True(t, errors.Is(err, entities.ErrUnknownPayoutPolicy))
	})
}

func TestRoundWorker_TickLease(t *testing.T) {
	t.Parallel()

	t.Run("skips when another worker holds the lease", func(t *testing.T) {
		t.Parallel()

		lease := &fakeLease{acquired: false}
		worker, err := NewRoundWorker(panicFactory{}, nil, testEngineConfig(), 2*time.Second, lease, nil)
		require.NoError(t, err)

		require.NoError(t, worker.Tick(context.Background()))
		assert.Equal(t, 1, lease.calls)
		assert.Equal(t, 6*time.Second, lease.lastTTL)
	})

	t.Run("lease error", func(t *testing.T) {
		t.Parallel()

		lease := &fakeLease{err: errors.New("redis down")}
		worker, err := NewRoundWorker(panicFactory{}, nil, testEngineConfig(), time.Second, lease, nil)
		require.NoError(t, err)

		err = worker.Tick(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}

// blockingLease holds the worker inside its tick until release is closed
type blockingLease struct {
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLease) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	close(l.entered)
	<-l.release
	return nil, false, nil
}

// beginFailsUnitOfWork fails every transaction before any repository is used
type beginFailsUnitOfWork struct {
	UnitOfWork
}

func (beginFailsUnitOfWork) Begin(ctx context.Context) error {
	return errors.New("database closed")
}

type beginFailsFactory struct{}

func (beginFailsFactory) Create() UnitOfWork {
	return beginFailsUnitOfWork{}
}

func TestRoundWorker_StopWaitsForTick(t *testing.T) {
	t.Parallel()

	lease := &blockingLease{entered: make(chan struct{}), release: make(chan struct{})}
	worker, err := NewRoundWorker(beginFailsFactory{}, nil, testEngineConfig(), time.Hour, lease, nil)
	require.NoError(t, err)

	stop := worker.Start(context.Background())
	<-lease.entered

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a tick was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(lease.release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the tick finished")
	}
}
