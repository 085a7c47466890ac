package partner

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodeInsufficientCredit is the code of InsufficientCreditError
const CodeInsufficientCredit = "INSUFFICIENT_CREDIT"

// InsufficientCreditError rejects spending more credit than the client holds
type InsufficientCreditError struct {
	ClientID  uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("requested credit %s exceeds available credit %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

// Unwrap exposes the coded domain error
func (e *InsufficientCreditError) Unwrap() error {
	return shared.NewDomainError(CodeInsufficientCredit, e.Error())
}

// Details returns the amounts that caused the rejection
func (e *InsufficientCreditError) Details() map[string]any {
	return map[string]any{
		"client_id": e.ClientID.String(),
		"requested": e.Requested.StringFixed(2),
		"available": e.Available.StringFixed(2),
	}
}
