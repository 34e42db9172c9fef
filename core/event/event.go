// Package event defines the domain events emitted by write operations
// and the contracts used to publish and consume them.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	UserCreated        Kind = "user.created"
	BatchCreated       Kind = "batch.created"
	EnrollmentCreated  Kind = "enrollment.created"
	PaymentPlanCreated Kind = "payment_plan.created"
	PaymentReceived    Kind = "payment.received"
	InstallmentOverdue Kind = "installment.overdue"
)

// Event describes a committed write. Payload holds a copy of the written entity.
// ID is unique per emission and is what makes consumers idempotent on redelivery.
type Event struct {
	ID         string
	Kind       Kind
	OccurredAt time.Time // UTC
	ActorID    string    // empty for self-service & system writes
	Payload    interface{}
	Attempt    int // 1-based delivery attempt of the current handler, set by the bus
}

func New(kind Kind, actorID string, payload interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

type (
	Handler func(ctx context.Context, ev Event) error

	// Publisher is what write operations depend on. Publish never fails the caller:
	// delivery problems are the publisher's to log.
	Publisher interface {
		Publish(ctx context.Context, events ...Event)
	}

	Subscriber interface {
		Subscribe(kind Kind, h Handler)
	}
)

type discard struct{}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

func (discard) Publish(context.Context, ...Event) {}
