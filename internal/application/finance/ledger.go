package finance

// Ledger bundles the ledger services built over one LedgerConfig
type Ledger struct {
	Credits           *CreditLedgerService
	Sources           *PaymentSourceLedgerService
	Payments          *PaymentReconciler
	Refunds           *RefundProcessor
	CreditApplication *CreditApplicationService
	Expenses          *ExpenseSettlementService
	Reconciliation    *ReconciliationService
}

// NewLedger wires every service against config. attachments may be nil when
// expense receipts are not checked against object storage.
func NewLedger(config LedgerConfig, attachments AttachmentVerifier) *Ledger {
	credits := NewCreditLedgerService(config)
	sources := NewPaymentSourceLedgerService(config)
	return &Ledger{
		Credits:           credits,
		Sources:           sources,
		Payments:          NewPaymentReconciler(config, credits),
		Refunds:           NewRefundProcessor(config),
		CreditApplication: NewCreditApplicationService(config, credits),
		Expenses:          NewExpenseSettlementService(config, sources, attachments),
		Reconciliation:    NewReconciliationService(config),
	}
}
