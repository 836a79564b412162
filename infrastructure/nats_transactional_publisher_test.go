package infrastructure

import (
	"context"
	"errors"
	"testing"

	"totopool/domain/entities"
	"totopool/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func statusEvent(roundID int64) events.RoundStatusChangedEvent {
	return events.RoundStatusChangedEvent{
		RoundID:   roundID,
		OldStatus: entities.RoundStatusSelection,
		NewStatus: entities.RoundStatusCalculation,
	}
}

func TestNATSTransactionalPublisher_HoldsUntilFlush(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, publisher.Publish(statusEvent(1)))
	require.NoError(t, publisher.Publish(statusEvent(2)))
	assert.Empty(t, mockPublisher.PublishedEvents)

	require.NoError(t, publisher.Flush(context.Background()))

	require.Len(t, mockPublisher.PublishedEvents, 2)
	assert.Equal(t, statusEvent(1), mockPublisher.PublishedEvents[0])
	assert.Equal(t, statusEvent(2), mockPublisher.PublishedEvents[1])

	// a second flush has nothing left to send
	require.NoError(t, publisher.Flush(context.Background()))
	assert.Len(t, mockPublisher.PublishedEvents, 2)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, publisher.Publish(statusEvent(1)))
	publisher.Discard()
	require.NoError(t, publisher.Flush(context.Background()))

	assert.Empty(t, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_LocalHandlers(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(mockPublisher)

	var handled []events.Event
	publisher.RegisterLocalHandler(events.EventTypeRoundStatusChanged, func(ctx context.Context, event events.Event) error {
		handled = append(handled, event)
		return nil
	})
	publisher.RegisterLocalHandler(events.EventTypeRoundStatusChanged, func(ctx context.Context, event events.Event) error {
		return errors.New("handler failed")
	})

	require.NoError(t, publisher.Publish(statusEvent(7)))
	require.NoError(t, publisher.Publish(events.CouponPlacedEvent{CouponID: 3}))
	assert.Empty(t, handled)

	require.NoError(t, publisher.Flush(context.Background()))

	require.Len(t, handled, 1)
	assert.Equal(t, statusEvent(7), handled[0])
	assert.Len(t, mockPublisher.PublishedEvents, 2)
}

func TestNATSTransactionalPublisher_PublishFailureContinues(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{PublishError: errors.New("nats down")}
	publisher := NewNATSTransactionalPublisher(mockPublisher)

	handled := 0
	publisher.RegisterLocalHandler(events.EventTypeRoundStatusChanged, func(ctx context.Context, event events.Event) error {
		handled++
		return nil
	})

	require.NoError(t, publisher.Publish(statusEvent(1)))
	require.NoError(t, publisher.Publish(statusEvent(2)))

	assert.NoError(t, publisher.Flush(context.Background()))
	assert.Equal(t, 2, handled)
}
