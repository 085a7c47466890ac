package finance

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationService replays ledger histories and compares them with the
// cached balances. It only reads; a mismatch is reported, never repaired.
type ReconciliationService struct {
	ledgerRuntime
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(config LedgerConfig) *ReconciliationService {
	return &ReconciliationService{ledgerRuntime: newLedgerRuntime(config)}
}

// VerifyClientBalance replays a client's credit history
func (s *ReconciliationService) VerifyClientBalance(ctx context.Context, tenantID, clientID uuid.UUID) (*BalanceVerification, error) {
	var v *BalanceVerification
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		client, err := repos.ClientRepo().FindByID(ctx, tenantID, clientID)
		if err != nil {
			return err
		}
		entries, err := repos.CreditHistoryRepo().FindAllByClientID(ctx, tenantID, clientID)
		if err != nil {
			return err
		}
		recomputed, verr := client.VerifyHistory(entries)
		v = newVerification(partner.AggregateTypeClient, clientID, client.CreditBalance, recomputed, len(entries), verr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.report(ctx, v), nil
}

// VerifyPaymentSourceBalance replays a payment source's transactions
func (s *ReconciliationService) VerifyPaymentSourceBalance(ctx context.Context, tenantID, sourceID uuid.UUID) (*BalanceVerification, error) {
	var v *BalanceVerification
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.PaymentSourceRepo().FindByID(ctx, tenantID, sourceID)
		if err != nil {
			return err
		}
		txs, err := repos.PaymentSourceTransactionRepo().FindAllBySourceID(ctx, tenantID, sourceID)
		if err != nil {
			return err
		}
		recomputed, verr := source.VerifyHistory(txs)
		v = newVerification(finance.AggregateTypePaymentSource, sourceID, source.CurrentBalance, recomputed, len(txs), verr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.report(ctx, v), nil
}

// VerifyInvoice recomputes an invoice's paid amount from its payments
func (s *ReconciliationService) VerifyInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*BalanceVerification, error) {
	var v *BalanceVerification
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		payments, err := repos.PaymentRepo().FindByInvoiceID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		recomputed, verr := invoice.VerifyPaidAmount(payments)
		v = newVerification(finance.AggregateTypeInvoice, invoiceID, invoice.PaidAmount, recomputed, len(payments), verr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.report(ctx, v), nil
}

func (s *ReconciliationService) report(ctx context.Context, v *BalanceVerification) *BalanceVerification {
	if v.Inconsistency != nil {
		s.observe(ctx, "verify", v.Inconsistency)
	}
	return v
}

func newVerification(entityType string, id uuid.UUID, stored, recomputed decimal.Decimal, count int, verr error) *BalanceVerification {
	v := &BalanceVerification{
		EntityType:        entityType,
		EntityID:          id,
		StoredBalance:     stored,
		RecomputedBalance: recomputed,
		EntryCount:        count,
		Consistent:        verr == nil,
	}
	if verr != nil {
		if inc, ok := asInconsistency(verr); ok {
			v.Inconsistency = inc
		} else {
			v.Inconsistency = shared.NewLedgerInconsistency(entityType, id, recomputed, stored, verr.Error())
		}
	}
	return v
}
