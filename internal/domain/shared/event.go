package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by a ledger aggregate. Events are published
// only after the transaction that raised them commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent carries the envelope fields of every ledger event.
// AggregateVersion is the version the aggregate had when the event was
// raised; consumers use (aggregate_id, aggregate_version) to order and dedupe.
type BaseDomainEvent struct {
	ID               uuid.UUID `json:"event_id"`
	Type             string    `json:"event_type"`
	Timestamp        time.Time `json:"occurred_at"`
	AggID            uuid.UUID `json:"aggregate_id"`
	AggType          string    `json:"aggregate_type"`
	AggregateVersion int       `json:"aggregate_version"`
	Tenant           uuid.UUID `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string  { return e.AggType }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Tenant }

// NewBaseDomainEvent stamps a new event raised by root
func NewBaseDomainEvent(eventType, aggType string, root *TenantAggregateRoot) BaseDomainEvent {
	return BaseDomainEvent{
		ID:               uuid.New(),
		Type:             eventType,
		Timestamp:        time.Now().UTC(),
		AggID:            root.ID,
		AggType:          aggType,
		AggregateVersion: root.Version,
		Tenant:           root.TenantID,
	}
}
