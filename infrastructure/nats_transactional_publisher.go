package infrastructure

import (
	"context"

	"totopool/domain/events"
	"totopool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// LocalEventHandler reacts to an event inside this process after commit
type LocalEventHandler func(ctx context.Context, event events.Event) error

// NATSTransactionalPublisher holds events until the owning transaction
// commits, then runs local handlers and publishes to the real publisher
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	localHandlers map[events.EventType][]LocalEventHandler
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		localHandlers: make(map[events.EventType][]LocalEventHandler),
		pending:       make([]events.Event, 0),
	}
}

// RegisterLocalHandler adds a handler invoked on flush for the event type
func (p *NATSTransactionalPublisher) RegisterLocalHandler(eventType events.EventType, handler LocalEventHandler) {
	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
}

// Publish queues an event without publishing it
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Queueing event until commit")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events in order. Failures are logged and do
// not stop the remaining events.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(p.pending)).Debug("Flushing pending events")

	for _, event := range p.pending {
		for _, handler := range p.localHandlers[event.Type()] {
			if err := handler(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Error("Local event handler failed")
			}
		}

		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard drops all pending events; called on rollback
func (p *NATSTransactionalPublisher) Discard() {
	log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events")
	p.pending = p.pending[:0]
}
