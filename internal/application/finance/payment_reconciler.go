package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paymentOutcomeRecorded    = "recorded"
	paymentOutcomeOverpayment = "overpayment"
	paymentOutcomeRejected    = "rejected"
	paymentOutcomeFailed      = "failed"
)

// PaymentReconciler records payments against invoices. The payment, the
// invoice's paid amount and status change in one transaction. An approved
// overpayment is parked as a PendingCredit in that same transaction and
// moved to the client's credit ledger right after commit.
type PaymentReconciler struct {
	ledgerRuntime
	credits *CreditLedgerService
}

// NewPaymentReconciler creates a new PaymentReconciler
func NewPaymentReconciler(config LedgerConfig, credits *CreditLedgerService) *PaymentReconciler {
	return &PaymentReconciler{ledgerRuntime: newLedgerRuntime(config), credits: credits}
}

// RecordPayment records a payment received for an invoice.
//
// When the payment exceeds what remains and AdminApproved is false nothing
// is written and an *finance.OverpaymentDetectedError is returned.
func (s *PaymentReconciler) RecordPayment(ctx context.Context, in RecordPaymentInput) (*RecordPaymentResult, error) {
	if err := finance.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Method.IsExternal() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD",
			"Payment method must be an external method; use credit application to spend client credit")
	}

	var (
		invoice *finance.Invoice
		payment *finance.Payment
		pending *finance.PendingCredit
	)
	err := s.inTx(ctx, "invoice.record_payment", func(repos TransactionalRepositories) error {
		invoice, payment, pending = nil, nil, nil

		inv, _, currentPaid, err := lockInvoice(ctx, repos, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.Status.AcceptsPayments() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot record payment on invoice in %s status", inv.Status))
		}

		remaining := finance.ComputeRemaining(inv.Amount, currentPaid)
		applied, overpayment := finance.SplitPayment(in.Amount, remaining)
		if overpayment.IsPositive() && !in.AdminApproved {
			return &finance.OverpaymentDetectedError{
				InvoiceID:         inv.ID,
				PaymentAmount:     in.Amount,
				RemainingAmount:   remaining,
				OverpaymentAmount: overpayment,
				InvoiceAmount:     inv.Amount,
				CurrentPaidAmount: currentPaid,
			}
		}

		p, err := finance.NewPayment(inv, in.Amount, applied, in.Method, in.PaymentDate)
		if err != nil {
			return err
		}
		p.WithBankReference(in.BankReference).WithNotes(in.Notes).WithAdminApproval(in.AdminApproved)
		if in.RecordedBy != nil {
			p.WithRecordedBy(*in.RecordedBy)
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

		if overpayment.IsPositive() {
			pc, err := finance.NewPendingCredit(p)
			if err != nil {
				return err
			}
			if err := repos.PendingCreditRepo().Create(ctx, pc); err != nil {
				return err
			}
			pending = pc
		}
		invoice, payment = inv, p
		return nil
	})
	if err != nil {
		outcome := paymentOutcomeFailed
		var over *finance.OverpaymentDetectedError
		if errors.As(err, &over) {
			outcome = paymentOutcomeRejected
		}
		s.metrics.RecordPayment(ctx, string(in.Method), outcome, in.Amount)
		return nil, s.observe(ctx, "invoice.record_payment", err)
	}

	outcome := paymentOutcomeRecorded
	if pending != nil {
		outcome = paymentOutcomeOverpayment
	}
	s.metrics.RecordPayment(ctx, string(in.Method), outcome, in.Amount)
	s.logger.Info("Payment recorded",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("applied", payment.AppliedAmount.StringFixed(2)),
		zap.String("status", invoice.Status.String()))
	s.publish(ctx, invoice)

	result := &RecordPaymentResult{
		Payment:       payment,
		Invoice:       invoice,
		NewPaidAmount: invoice.PaidAmount,
		NewStatus:     invoice.Status,
	}
	if pending == nil {
		return result, nil
	}

	result.CreditAdded = pending.Amount
	entry, err := s.settlePendingCredit(ctx, pending)
	if err != nil {
		// The payment is committed. The credit stays pending for replay.
		s.logger.Error("Overpayment credit not applied; left pending for replay",
			zap.String("payment_id", payment.ID.String()),
			zap.String("client_id", pending.ClientID.String()),
			zap.String("amount", pending.Amount.StringFixed(2)),
			zap.Error(err))
		s.markPendingFailed(ctx, pending.PaymentID, err)
		result.CreditPending = true
		return result, nil
	}
	balance := entry.NewBalance
	result.NewCreditBalance = &balance
	return result, nil
}

// ListPayments returns the payment history of an invoice, oldest first
func (s *PaymentReconciler) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*finance.Payment, error) {
	var payments []*finance.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.InvoiceRepo().FindByID(ctx, tenantID, invoiceID); err != nil {
			return err
		}
		var err error
		payments, err = repos.PaymentRepo().FindByInvoiceID(ctx, tenantID, invoiceID)
		return err
	})
	return payments, err
}

// ReplayPendingCredits moves overpayments that never reached the credit
// ledger. Each row is settled at most once thanks to the payment link on
// the credit history entry.
func (s *PaymentReconciler) ReplayPendingCredits(ctx context.Context, limit int) (*ReplayResult, error) {
	var rows []*finance.PendingCredit
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		rows, err = repos.PendingCreditRepo().FindUnsettled(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{}
	for _, row := range rows {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.settlePendingCredit(ctx, row); err != nil {
			s.logger.Error("Pending credit replay failed",
				zap.String("payment_id", row.PaymentID.String()),
				zap.Error(err))
			s.markPendingFailed(ctx, row.PaymentID, err)
			result.Failed++
			continue
		}
		result.Applied++
	}
	return result, nil
}

// settlePendingCredit adds the parked overpayment to the client's credit
// ledger unless an entry for the payment already exists.
func (s *PaymentReconciler) settlePendingCredit(ctx context.Context, pending *finance.PendingCredit) (*partner.CreditHistoryEntry, error) {
	var client *partner.Client
	var entry *partner.CreditHistoryEntry
	settle := func(repos TransactionalRepositories) error {
		client, entry = nil, nil

		// The client lock serializes settlers of the same payment, so the
		// lookups below see an entry committed by a concurrent settle.
		locked, err := s.credits.LockClient(ctx, repos, pending.TenantID, pending.ClientID)
		if err != nil {
			return err
		}
		row, err := repos.PendingCreditRepo().FindByPaymentID(ctx, pending.PaymentID)
		if err != nil {
			return err
		}
		existing, err := repos.CreditHistoryRepo().FindByPaymentID(ctx, row.TenantID, row.PaymentID, partner.CreditEntryTypeAdded)
		if err != nil {
			return err
		}
		if existing != nil {
			entry = existing
		} else {
			invoiceID, paymentID := row.InvoiceID, row.PaymentID
			entry, err = s.credits.AddLocked(ctx, repos, locked, row.Amount, partner.CreditContext{
				InvoiceID:   &invoiceID,
				PaymentID:   &paymentID,
				Description: "Overpayment credited to client",
			})
			if err != nil {
				return err
			}
			client = locked
		}

		if row.IsSettled() {
			return nil
		}
		row.MarkApplied()
		return repos.PendingCreditRepo().Update(ctx, row)
	}

	err := s.inTx(ctx, "credit.overpayment", settle)
	if errors.Is(err, shared.ErrAlreadyExists) {
		// Another settle inserted the entry first; a second pass adopts it.
		s.logger.Debug("Overpayment credit already recorded, re-reading",
			zap.String("payment_id", pending.PaymentID.String()))
		err = s.inTx(ctx, "credit.overpayment", settle)
	}
	if err != nil {
		return nil, s.observe(ctx, "credit.overpayment", err)
	}
	if client != nil {
		s.credits.afterCommit(ctx, client, entry)
	}
	return entry, nil
}

func (s *PaymentReconciler) markPendingFailed(ctx context.Context, paymentID uuid.UUID, cause error) {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		row, err := repos.PendingCreditRepo().FindByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		if row.IsSettled() {
			return nil
		}
		row.MarkFailed(cause)
		return repos.PendingCreditRepo().Update(ctx, row)
	})
	if err != nil {
		s.logger.Warn("Failed to record pending credit failure",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err))
	}
}

// lockInvoice loads an invoice for update together with its payment history
// and recomputes the paid amount from that history. A stored paid amount that
// disagrees with the history aborts the operation.
func lockInvoice(ctx context.Context, repos TransactionalRepositories, tenantID, invoiceID uuid.UUID) (*finance.Invoice, []*finance.Payment, decimal.Decimal, error) {
	invoice, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	payments, err := repos.PaymentRepo().FindByInvoiceID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	currentPaid, err := invoice.VerifyPaidAmount(payments)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	return invoice, payments, currentPaid, nil
}
