package finance

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditApplicationService pays invoices out of a client's credit balance.
// The invoice and the client are locked in that order and the credit entry,
// the credit_balance payment and the invoice update commit together.
type CreditApplicationService struct {
	ledgerRuntime
	credits *CreditLedgerService
}

// NewCreditApplicationService creates a new CreditApplicationService
func NewCreditApplicationService(config LedgerConfig, credits *CreditLedgerService) *CreditApplicationService {
	return &CreditApplicationService{ledgerRuntime: newLedgerRuntime(config), credits: credits}
}

// ApplyCreditToInvoice spends up to RequestedAmount of credit on the invoice.
// Only what remains on the invoice is used; the rest stays as credit.
func (s *CreditApplicationService) ApplyCreditToInvoice(ctx context.Context, in ApplyCreditInput) (*ApplyCreditResult, error) {
	if err := finance.ValidateAmount(in.RequestedAmount); err != nil {
		return nil, err
	}

	var (
		invoice *finance.Invoice
		client  *partner.Client
		payment *finance.Payment
		entry   *partner.CreditHistoryEntry
	)
	err := s.inTx(ctx, "credit.apply", func(repos TransactionalRepositories) error {
		invoice, client, payment, entry = nil, nil, nil, nil

		inv, _, currentPaid, err := lockInvoice(ctx, repos, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.ClientID != in.ClientID {
			return shared.NewDomainError("INVALID_CLIENT",
				fmt.Sprintf("Invoice %s does not belong to client %s", inv.InvoiceNumber, in.ClientID))
		}
		c, err := s.credits.LockClient(ctx, repos, in.TenantID, in.ClientID)
		if err != nil {
			return err
		}
		if in.RequestedAmount.GreaterThan(c.CreditBalance) {
			return &partner.InsufficientCreditError{ClientID: c.ID, Requested: in.RequestedAmount, Available: c.CreditBalance}
		}

		remaining := finance.ComputeRemaining(inv.Amount, currentPaid)
		if !remaining.IsPositive() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Invoice %s is already fully paid", inv.InvoiceNumber))
		}
		if !inv.Status.AcceptsPayments() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot apply credit to invoice in %s status", inv.Status))
		}
		creditUsed := decimal.Min(in.RequestedAmount, remaining)

		p, err := finance.NewCreditPayment(inv, creditUsed)
		if err != nil {
			return err
		}
		if in.AppliedBy != nil {
			p.WithRecordedBy(*in.AppliedBy)
		}
		invoiceID, paymentID := inv.ID, p.ID
		e, err := s.credits.SpendLocked(ctx, repos, c, creditUsed, partner.CreditEntryTypeUsed, partner.CreditContext{
			InvoiceID:   &invoiceID,
			PaymentID:   &paymentID,
			Description: fmt.Sprintf("Credit applied to invoice %s", inv.InvoiceNumber),
			OperatorID:  in.AppliedBy,
		})
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, p); err != nil {
			return err
		}
		if err := inv.ApplyPayment(p); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice, client, payment, entry = inv, c, p, e
		return nil
	})
	if err != nil {
		return nil, s.observe(ctx, "credit.apply", err)
	}

	s.credits.afterCommit(ctx, client, entry)
	s.metrics.RecordPayment(ctx, string(payment.Method), paymentOutcomeRecorded, payment.Amount)
	s.logger.Info("Credit applied to invoice",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("credit_used", payment.Amount.StringFixed(2)),
		zap.String("status", invoice.Status.String()))
	s.publish(ctx, invoice)

	return &ApplyCreditResult{
		Payment:         payment,
		Invoice:         invoice,
		CreditUsed:      payment.Amount,
		RemainingCredit: client.CreditBalance,
		NewPaidAmount:   invoice.PaidAmount,
		NewStatus:       invoice.Status,
	}, nil
}
