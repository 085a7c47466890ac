package partner

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeClient names the client aggregate in events and errors
const AggregateTypeClient = "Client"

const creditScale int32 = 2

// ClientStatus represents the status of a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client is the aggregate owning a store-of-value credit balance.
// CreditBalance is a cache of the client's CreditHistoryEntry stream and is
// only changed together with a new entry.
type Client struct {
	shared.TenantAggregateRoot
	Code          string
	Name          string
	Email         string
	Status        ClientStatus
	CreditBalance decimal.Decimal

	// sequence of the newest history entry, set by CheckLatest
	headSequence int64
}

// NewClient creates an active client with no credit
func NewClient(tenantID uuid.UUID, code, name string) (*Client, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Client code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Client code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
	}
	return &Client{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Status:              ClientStatusActive,
		CreditBalance:       decimal.Zero,
	}, nil
}

// AddCredit grows the credit balance and returns the matching history entry
func (c *Client) AddCredit(amount decimal.Decimal, cc CreditContext) (*CreditHistoryEntry, error) {
	if err := validateCreditAmount(amount); err != nil {
		return nil, err
	}
	return c.record(CreditEntryTypeAdded, amount, cc)
}

// SpendCredit consumes credit as credit_used or credit_applied
func (c *Client) SpendCredit(amount decimal.Decimal, entryType CreditEntryType, cc CreditContext) (*CreditHistoryEntry, error) {
	if !entryType.IsSpend() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE",
			fmt.Sprintf("%s is not a spend entry type", entryType))
	}
	if err := validateCreditAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(c.CreditBalance) {
		return nil, &InsufficientCreditError{ClientID: c.ID, Requested: amount, Available: c.CreditBalance}
	}
	return c.record(entryType, amount, cc)
}

// RefundCredit pays credit back to the client outside the system
func (c *Client) RefundCredit(amount decimal.Decimal, cc CreditContext) (*CreditHistoryEntry, error) {
	if err := validateCreditAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(c.CreditBalance) {
		return nil, &InsufficientCreditError{ClientID: c.ID, Requested: amount, Available: c.CreditBalance}
	}
	return c.record(CreditEntryTypeRefunded, amount, cc)
}

func (c *Client) record(entryType CreditEntryType, amount decimal.Decimal, cc CreditContext) (*CreditHistoryEntry, error) {
	previous := c.CreditBalance
	next := previous.Add(amount)
	if !entryType.IsIncrease() {
		next = previous.Sub(amount)
	}
	next = next.Round(creditScale)

	entry, err := NewCreditHistoryEntry(c.TenantID, c.ID, entryType, amount, previous, next, cc)
	if err != nil {
		return nil, err
	}
	c.CreditBalance = next
	c.IncrementVersion()
	c.headSequence++
	entry.Sequence = c.headSequence
	c.AddDomainEvent(NewClientCreditChangedEvent(c, entry))
	return entry, nil
}

// VerifyHistory replays entries (oldest first) from zero and checks every
// row and the final result against the cached CreditBalance.
func (c *Client) VerifyHistory(entries []*CreditHistoryEntry) (decimal.Decimal, error) {
	running := decimal.Zero
	for _, e := range entries {
		if !e.PreviousBalance.Equal(running) {
			return running, shared.NewLedgerInconsistency(AggregateTypeClient, c.ID, running, e.PreviousBalance,
				fmt.Sprintf("entry %s does not continue the previous balance", e.ID))
		}
		if err := e.Verify(); err != nil {
			return running, err
		}
		running = e.NewBalance
	}
	if !running.Equal(c.CreditBalance) {
		return running, shared.NewLedgerInconsistency(AggregateTypeClient, c.ID, running, c.CreditBalance,
			"credit balance differs from credit history")
	}
	return running, nil
}

// CheckLatest compares the cached balance with the newest history entry.
// It is the cheap guard run before every mutation.
func (c *Client) CheckLatest(latest *CreditHistoryEntry) error {
	expected := decimal.Zero
	var head int64
	if latest != nil {
		expected, head = latest.NewBalance, latest.Sequence
	}
	if !expected.Equal(c.CreditBalance) {
		return shared.NewLedgerInconsistency(AggregateTypeClient, c.ID, expected, c.CreditBalance,
			"credit balance differs from latest history entry")
	}
	c.headSequence = head
	return nil
}

// HasCredit returns true if the client holds any credit
func (c *Client) HasCredit() bool {
	return c.CreditBalance.IsPositive()
}

func validateCreditAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Amount must be positive, got %s", amount.String()))
	}
	if !amount.Equal(amount.Round(creditScale)) {
		return shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Amount %s has more than %d decimal places", amount.String(), creditScale))
	}
	return nil
}
