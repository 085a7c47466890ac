package partner

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	// FindByID finds a client by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)

	// FindByIDForUpdate loads the client and holds a row lock on it until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)

	// Create inserts a new client
	Create(ctx context.Context, client *Client) error

	// SaveWithLock saves a client with optimistic locking (version check).
	// Returns shared.ErrConcurrencyConflict if the version has changed.
	SaveWithLock(ctx context.Context, client *Client) error
}

// CreditHistoryRepository stores the append-only credit ledger
type CreditHistoryRepository interface {
	// Create appends an entry
	Create(ctx context.Context, entry *CreditHistoryEntry) error

	// FindByClientID returns a page of entries, newest first
	FindByClientID(ctx context.Context, tenantID, clientID uuid.UUID, filter shared.Filter) ([]*CreditHistoryEntry, int64, error)

	// FindAllByClientID returns the full history, oldest first
	FindAllByClientID(ctx context.Context, tenantID, clientID uuid.UUID) ([]*CreditHistoryEntry, error)

	// GetLatestByClientID returns the newest entry, or nil when there is none
	GetLatestByClientID(ctx context.Context, tenantID, clientID uuid.UUID) (*CreditHistoryEntry, error)

	// FindByPaymentID returns the entry of the given type written for a
	// payment, or nil. Used to keep overpayment credit idempotent.
	FindByPaymentID(ctx context.Context, tenantID, paymentID uuid.UUID, entryType CreditEntryType) (*CreditHistoryEntry, error)
}
