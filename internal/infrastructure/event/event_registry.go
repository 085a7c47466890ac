package event

import (
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
)

// RegisterLedgerEvents registers every ledger event type with the serializer
func RegisterLedgerEvents(serializer *EventSerializer) {
	serializer.Register(finance.EventTypeInvoicePaymentRecorded, &finance.InvoicePaymentRecordedEvent{})
	serializer.Register(finance.EventTypeInvoicePaid, &finance.InvoicePaidEvent{})
	serializer.Register(finance.EventTypeInvoiceRefunded, &finance.InvoiceRefundedEvent{})
	serializer.Register(finance.EventTypeExpenseSettled, &finance.ExpenseSettledEvent{})
	serializer.Register(finance.EventTypePaymentSourceBalanceChanged, &finance.PaymentSourceBalanceChangedEvent{})
	serializer.Register(partner.EventTypeClientCreditChanged, &partner.ClientCreditChangedEvent{})
}

// NewLedgerSerializer returns a serializer with the ledger events registered
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLedgerEvents(s)
	return s
}
