package registry_repo

import (
	"context"

	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ registry.EventPublisher = (*OutboxEventPublisher)(nil)

// OutboxEventPublisher bridges registry events into the transactional
// outbox. The write joins the caller's transaction, so the event is
// only relayed when the state change committed.
type OutboxEventPublisher struct {
	outbox *postgres.OutboxPublisher
}

// NewOutboxEventPublisher creates the adapter.
func NewOutboxEventPublisher(outbox *postgres.OutboxPublisher) *OutboxEventPublisher {
	return &OutboxEventPublisher{outbox: outbox}
}

// Publish queues the event in the outbox.
func (p *OutboxEventPublisher) Publish(ctx context.Context, event registry.Event) error {
	return p.outbox.Publish(ctx, postgres.DomainEvent{
		AggregateType: "organisation",
		AggregateID:   event.OrganisationID,
		EventType:     event.Type,
		Payload:       event.Payload,
	})
}
