package finance

// InvoiceStatus represents where an invoice sits in its payment lifecycle.
// Status values only change through Invoice methods, which consult the
// transition table below.
type InvoiceStatus string

const (
	InvoiceStatusDraft             InvoiceStatus = "draft"
	InvoiceStatusSent              InvoiceStatus = "sent"
	InvoiceStatusOverdue           InvoiceStatus = "overdue"
	InvoiceStatusPartiallyPaid     InvoiceStatus = "partially_paid"
	InvoiceStatusPaid              InvoiceStatus = "paid"
	InvoiceStatusPartiallyRefunded InvoiceStatus = "partially_refunded"
	InvoiceStatusRefunded          InvoiceStatus = "refunded"
	InvoiceStatusCancelled         InvoiceStatus = "cancelled"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:             {InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusSent:              {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:           {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusPartiallyRefunded, InvoiceStatusRefunded, InvoiceStatusCancelled},
	InvoiceStatusPartiallyPaid:     {InvoiceStatusPaid, InvoiceStatusPartiallyRefunded, InvoiceStatusRefunded, InvoiceStatusOverdue},
	InvoiceStatusPaid:              {InvoiceStatusPartiallyRefunded, InvoiceStatusRefunded},
	InvoiceStatusPartiallyRefunded: {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusRefunded},
	InvoiceStatusRefunded:          {InvoiceStatusPartiallyPaid, InvoiceStatusPaid},
	InvoiceStatusCancelled:         {},
}

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Staying in the same status is always allowed.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsPayments returns true if money can be received against the invoice
func (s InvoiceStatus) AcceptsPayments() bool {
	return s.IsValid() && s != InvoiceStatusCancelled
}

// IsSettled returns true when nothing is owed and nothing was given back
func (s InvoiceStatus) IsSettled() bool {
	return s == InvoiceStatusPaid
}
