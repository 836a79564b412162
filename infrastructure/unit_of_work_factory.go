package infrastructure

import (
	"totopool/application"
	"totopool/database"
	"totopool/domain/events"
	"totopool/domain/interfaces"
	"totopool/repository"
)

// UnitOfWorkFactory implements the application.UnitOfWorkFactory interface.
// Each unit of work gets its own transactional publisher.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(eventPublisher interfaces.EventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
	localHandlers  map[events.EventType][]LocalEventHandler
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
		localHandlers:  make(map[events.EventType][]LocalEventHandler),
	}
}

// RegisterLocalHandler registers a handler run in-process after every commit
// that carried an event of the type. Register before creating units of work.
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler LocalEventHandler) {
	f.localHandlers[eventType] = append(f.localHandlers[eventType], handler)
}

// Create creates a new UnitOfWork with a transactional event publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewNATSTransactionalPublisher(f.eventPublisher)
	for eventType, handlers := range f.localHandlers {
		for _, handler := range handlers {
			transactionalPublisher.RegisterLocalHandler(eventType, handler)
		}
	}

	return &unitOfWork{
		inner:                  f.repoFactory.CreateWithPublisher(transactionalPublisher),
		transactionalPublisher: transactionalPublisher,
	}
}
