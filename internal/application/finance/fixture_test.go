package finance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// publishedTypes returns the event types of every Publish call, in order
func (m *MockEventPublisher) publishedTypes() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		for _, e := range call.Arguments.Get(1).([]shared.DomainEvent) {
			out = append(out, e.EventType())
		}
	}
	return out
}

type ledgerFixture struct {
	store      *memoryStore
	tenantID   uuid.UUID
	publisher  *MockEventPublisher
	credits    *CreditLedgerService
	sources    *PaymentSourceLedgerService
	reconciler *PaymentReconciler
	refunds    *RefundProcessor
	applier    *CreditApplicationService
	expenses   *ExpenseSettlementService
	verifier   *ReconciliationService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	return newLedgerFixtureWithAttachments(t, nil)
}

func newLedgerFixtureWithAttachments(t *testing.T, attachments AttachmentVerifier) *ledgerFixture {
	t.Helper()
	store := newMemoryStore()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	config := LedgerConfig{
		TxScope:        store,
		EventPublisher: publisher,
		Logger:         zap.NewNop(),
		Retry:          RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
	ledger := NewLedger(config, attachments)
	return &ledgerFixture{
		store:      store,
		tenantID:   uuid.New(),
		publisher:  publisher,
		credits:    ledger.Credits,
		sources:    ledger.Sources,
		reconciler: ledger.Payments,
		refunds:    ledger.Refunds,
		applier:    ledger.CreditApplication,
		expenses:   ledger.Expenses,
		verifier:   ledger.Reconciliation,
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// addClient creates a client and grants it credit through the ledger so
// its history explains the balance.
func (f *ledgerFixture) addClient(t *testing.T, credit string) *partner.Client {
	t.Helper()
	client, err := partner.NewClient(f.tenantID, "C-"+uuid.NewString()[:8], "Acme Ltd")
	require.NoError(t, err)
	f.store.seed(func(st *memoryState) {
		st.clients[client.ID] = *client
	})
	if amount := d(credit); amount.IsPositive() {
		_, err := f.credits.AddCredit(context.Background(), f.tenantID, client.ID, amount, partner.CreditContext{Description: "opening credit"})
		require.NoError(t, err)
	}
	return client
}

// addInvoice creates a sent invoice for client
func (f *ledgerFixture) addInvoice(t *testing.T, clientID uuid.UUID, amount string) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice(f.tenantID, "INV-"+uuid.NewString()[:8], clientID, d(amount), nil)
	require.NoError(t, err)
	require.NoError(t, inv.MarkSent())
	inv.ClearDomainEvents()
	f.store.seed(func(st *memoryState) {
		st.invoices[inv.ID] = *inv
	})
	return inv
}

// addSource creates a payment source with an opening balance
func (f *ledgerFixture) addSource(t *testing.T, sourceType finance.PaymentSourceType, opening string) *finance.PaymentSource {
	t.Helper()
	src, err := finance.NewPaymentSource(f.tenantID, "Main "+string(sourceType), sourceType)
	require.NoError(t, err)
	f.store.seed(func(st *memoryState) {
		st.sources[src.ID] = *src
	})
	if amount := d(opening); !amount.IsZero() {
		_, err := f.sources.AdjustBalance(context.Background(), AdjustBalanceInput{
			TenantID:    f.tenantID,
			SourceID:    src.ID,
			Amount:      amount,
			Description: "opening balance",
		})
		require.NoError(t, err)
	}
	return src
}

// addExpense creates a pending expense, optionally assigned to a source
func (f *ledgerFixture) addExpense(t *testing.T, amount string, sourceID *uuid.UUID) *finance.Expense {
	t.Helper()
	exp, err := finance.NewExpense(f.tenantID, "EXP-"+uuid.NewString()[:8], finance.ExpenseCategoryOffice, d(amount), "printer paper", time.Now())
	require.NoError(t, err)
	if sourceID != nil {
		require.NoError(t, exp.AssignPaymentSource(*sourceID))
	}
	f.store.seed(func(st *memoryState) {
		st.expenses[exp.ID] = *exp
	})
	return exp
}

func (f *ledgerFixture) invoice(t *testing.T, id uuid.UUID) finance.Invoice {
	t.Helper()
	inv, ok := f.store.snapshot().invoices[id]
	require.True(t, ok)
	return inv
}

func (f *ledgerFixture) client(t *testing.T, id uuid.UUID) partner.Client {
	t.Helper()
	c, ok := f.store.snapshot().clients[id]
	require.True(t, ok)
	return c
}

func (f *ledgerFixture) source(t *testing.T, id uuid.UUID) finance.PaymentSource {
	t.Helper()
	s, ok := f.store.snapshot().sources[id]
	require.True(t, ok)
	return s
}

func (f *ledgerFixture) payments(invoiceID uuid.UUID) []finance.Payment {
	var out []finance.Payment
	for _, p := range f.store.snapshot().payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out
}

func (f *ledgerFixture) creditEntries(clientID uuid.UUID) []partner.CreditHistoryEntry {
	var out []partner.CreditHistoryEntry
	for _, e := range f.store.snapshot().creditHistory {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out
}

func (f *ledgerFixture) pay(t *testing.T, invoiceID uuid.UUID, amount string, approved bool) (*RecordPaymentResult, error) {
	t.Helper()
	return f.reconciler.RecordPayment(context.Background(), RecordPaymentInput{
		TenantID:      f.tenantID,
		InvoiceID:     invoiceID,
		Amount:        d(amount),
		Method:        finance.PaymentMethodBankTransfer,
		BankReference: "TRX-1",
		AdminApproved: approved,
	})
}

// requireConsistent checks every cached balance against its history
func (f *ledgerFixture) requireConsistent(t *testing.T, invoiceIDs []uuid.UUID, clientIDs []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	for _, id := range invoiceIDs {
		v, err := f.verifier.VerifyInvoice(ctx, f.tenantID, id)
		require.NoError(t, err)
		require.True(t, v.Consistent, "invoice %s: %v", id, v.Inconsistency)
	}
	for _, id := range clientIDs {
		v, err := f.verifier.VerifyClientBalance(ctx, f.tenantID, id)
		require.NoError(t, err)
		require.True(t, v.Consistent, "client %s: %v", id, v.Inconsistency)
	}
}

func transientErr(msg string) error {
	return fmt.Errorf("%w: %s", shared.ErrTransientFailure, msg)
}
