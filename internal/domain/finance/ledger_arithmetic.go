package finance

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept on every persisted amount.
const MoneyScale int32 = 2

// RoundMoney rounds d half away from zero to MoneyScale places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ValidateAmount rejects non-positive amounts and amounts carrying more
// precision than can be persisted.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Amount must be positive, got %s", amount.String()))
	}
	if !amount.Equal(RoundMoney(amount)) {
		return shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Amount %s has more than %d decimal places", amount.String(), MoneyScale))
	}
	return nil
}

// ComputeRemaining returns what is still owed on an invoice.
func ComputeRemaining(invoiceAmount, currentPaidAmount decimal.Decimal) decimal.Decimal {
	return invoiceAmount.Sub(currentPaidAmount)
}

// SplitPayment divides a payment into the part that settles the invoice and
// the excess over what remains.
func SplitPayment(paymentAmount, remaining decimal.Decimal) (applied, overpayment decimal.Decimal) {
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	applied = decimal.Min(paymentAmount, remaining)
	overpayment = decimal.Max(decimal.Zero, paymentAmount.Sub(remaining))
	return applied, overpayment
}

// NextInvoiceStatus derives the status after the paid amount moved up.
// A cancelled invoice keeps its status.
func NextInvoiceStatus(paidAmount, invoiceAmount decimal.Decimal, previous InvoiceStatus) InvoiceStatus {
	if previous == InvoiceStatusCancelled {
		return previous
	}
	switch {
	case paidAmount.GreaterThanOrEqual(invoiceAmount):
		return InvoiceStatusPaid
	case paidAmount.IsPositive():
		return InvoiceStatusPartiallyPaid
	default:
		return previous
	}
}

// RefundStatus derives the status after a refund lowered the paid amount.
func RefundStatus(newPaidAmount, invoiceAmount decimal.Decimal, previous InvoiceStatus) InvoiceStatus {
	switch {
	case !newPaidAmount.IsPositive():
		return InvoiceStatusRefunded
	case newPaidAmount.LessThan(invoiceAmount):
		return InvoiceStatusPartiallyRefunded
	default:
		return previous
	}
}

// SumApplied recomputes an invoice's paid amount from its payment history.
// Refund rows carry a negative applied amount and net out.
func SumApplied(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AppliedAmount)
	}
	return total
}

// SumReceived totals the non-refund payment amounts, including any excess
// that was diverted to client credit.
func SumReceived(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if !p.IsRefund {
			total = total.Add(p.Amount)
		}
	}
	return total
}
