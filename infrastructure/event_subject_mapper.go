package infrastructure

import (
	"fmt"

	"totopool/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "users.balance_changed"
	case events.EventTypeUserCreated:
		return "users.created"
	case events.EventTypeCouponPlaced:
		return "coupons.placed"
	case events.EventTypeRoundStatusChanged:
		return "rounds.status_changed"
	case events.EventTypeRoundSettled:
		return "rounds.settled"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "users.balance_changed":
		return events.EventTypeBalanceChange
	case "users.created":
		return events.EventTypeUserCreated
	case "coupons.placed":
		return events.EventTypeCouponPlaced
	case "rounds.status_changed":
		return events.EventTypeRoundStatusChanged
	case "rounds.settled":
		return events.EventTypeRoundSettled
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"users.balance_changed",
		"users.created",
		"coupons.placed",
		"rounds.status_changed",
		"rounds.settled",
		"unknown.>",
	}
}
