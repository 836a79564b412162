package repository

import (
	"context"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/events"
	"totopool/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestUnitOfWork_Integration(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(testDB.DB)

	t.Run("getters panic before begin", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&recordingPublisher{})
		assert.Panics(t, func() { uow.RoundRepository() })
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&recordingPublisher{})
		require.NoError(t, uow.Begin(ctx))

		round := &entities.Round{Status: entities.RoundStatusWaiting, LivePool: decimal.Zero}
		require.NoError(t, uow.RoundRepository().Create(ctx, round))
		require.NoError(t, uow.Rollback())

		stored, err := NewRoundRepository(testDB.DB).GetByID(ctx, round.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("commit keeps writes", func(t *testing.T) {
		publisher := &recordingPublisher{}
		uow := factory.CreateWithPublisher(publisher)
		require.NoError(t, uow.Begin(ctx))

		round := &entities.Round{Status: entities.RoundStatusWaiting, LivePool: decimal.Zero}
		require.NoError(t, uow.RoundRepository().Create(ctx, round))
		require.NoError(t, uow.EventBus().Publish(events.RoundStatusChangedEvent{RoundID: round.ID}))
		require.NoError(t, uow.Commit())

		// rollback after commit is harmless
		require.NoError(t, uow.Rollback())

		stored, err := NewRoundRepository(testDB.DB).GetByID(ctx, round.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Len(t, publisher.events, 1)
	})
}
