package partner

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypeClientCreditChanged is raised for every credit ledger entry
const EventTypeClientCreditChanged = "ClientCreditChanged"

// ClientCreditChangedEvent carries one credit ledger movement
type ClientCreditChangedEvent struct {
	shared.BaseDomainEvent
	ClientID        uuid.UUID       `json:"client_id"`
	EntryID         uuid.UUID       `json:"entry_id"`
	EntryType       CreditEntryType `json:"entry_type"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	InvoiceID       *uuid.UUID      `json:"invoice_id,omitempty"`
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
}

// NewClientCreditChangedEvent creates a new ClientCreditChangedEvent
func NewClientCreditChangedEvent(c *Client, entry *CreditHistoryEntry) *ClientCreditChangedEvent {
	return &ClientCreditChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCreditChanged, AggregateTypeClient, &c.TenantAggregateRoot),
		ClientID:        c.ID,
		EntryID:         entry.ID,
		EntryType:       entry.Type,
		Amount:          entry.Amount,
		PreviousBalance: entry.PreviousBalance,
		NewBalance:      entry.NewBalance,
		InvoiceID:       entry.InvoiceID,
		PaymentID:       entry.PaymentID,
	}
}
