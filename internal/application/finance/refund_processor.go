package finance

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundProcessor pays money back against an invoice. Refunds lower the
// invoice's paid amount; they never touch the client's credit ledger.
type RefundProcessor struct {
	ledgerRuntime
}

// NewRefundProcessor creates a new RefundProcessor
func NewRefundProcessor(config LedgerConfig) *RefundProcessor {
	return &RefundProcessor{ledgerRuntime: newLedgerRuntime(config)}
}

// RefundInvoicePayment records a refund of up to the invoice's paid amount
func (s *RefundProcessor) RefundInvoicePayment(ctx context.Context, in RefundInvoiceInput) (*RefundInvoiceResult, error) {
	if err := finance.ValidateAmount(in.RefundAmount); err != nil {
		return nil, err
	}
	if !in.RefundMethod.IsExternal() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Refund method must be an external payment method")
	}

	var invoice *finance.Invoice
	var refund *finance.Payment
	err := s.inTx(ctx, "invoice.refund", func(repos TransactionalRepositories) error {
		invoice, refund = nil, nil

		inv, payments, currentPaid, err := lockInvoice(ctx, repos, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}
		if in.RefundAmount.GreaterThan(currentPaid) {
			return finance.NewRefundExceedsPaidError(inv.ID, in.RefundAmount, currentPaid)
		}
		if in.OriginalPaymentID != nil {
			if err := checkOriginalPayment(inv, payments, *in.OriginalPaymentID, in.RefundAmount); err != nil {
				return err
			}
		}

		r, err := finance.NewRefundPayment(inv, in.RefundAmount, in.RefundMethod)
		if err != nil {
			return err
		}
		r.WithBankReference(in.RefundReference).WithNotes(in.Notes)
		if in.OriginalPaymentID != nil {
			r.WithOriginalPayment(*in.OriginalPaymentID)
		}
		if in.RecordedBy != nil {
			r.WithRecordedBy(*in.RecordedBy)
		}
		if err := repos.PaymentRepo().Create(ctx, r); err != nil {
			return err
		}
		if err := inv.ApplyRefund(r); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice, refund = inv, r
		return nil
	})
	if err != nil {
		return nil, s.observe(ctx, "invoice.refund", err)
	}

	s.metrics.RecordRefund(ctx, in.RefundAmount)
	s.logger.Info("Invoice refund recorded",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("refund_id", refund.ID.String()),
		zap.String("amount", in.RefundAmount.StringFixed(2)),
		zap.String("status", invoice.Status.String()))
	s.publish(ctx, invoice)

	return &RefundInvoiceResult{
		RefundPayment: refund,
		Invoice:       invoice,
		NewPaidAmount: invoice.PaidAmount,
		NewStatus:     invoice.Status,
	}, nil
}

// checkOriginalPayment limits refunds against one payment to the part of it
// that was applied to the invoice, net of earlier refunds against it.
func checkOriginalPayment(invoice *finance.Invoice, payments []*finance.Payment, originalID uuid.UUID, amount decimal.Decimal) error {
	var original *finance.Payment
	alreadyRefunded := decimal.Zero
	for _, p := range payments {
		if p.ID == originalID {
			original = p
		}
		if p.IsRefund && p.OriginalPaymentID != nil && *p.OriginalPaymentID == originalID {
			alreadyRefunded = alreadyRefunded.Add(p.Amount.Neg())
		}
	}
	if original == nil {
		return shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("Payment %s not found on invoice %s", originalID, invoice.InvoiceNumber))
	}
	if original.IsRefund {
		return shared.NewDomainError("INVALID_PAYMENT", "Cannot refund a refund")
	}
	refundable := original.AppliedAmount.Sub(alreadyRefunded)
	if amount.GreaterThan(refundable) {
		return finance.NewRefundExceedsPaidError(invoice.ID, amount, refundable)
	}
	return nil
}
