package shared

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodeLedgerInconsistency is reported when a cached running balance no longer
// matches the history it is derived from.
const CodeLedgerInconsistency = "LEDGER_INCONSISTENCY"

// LedgerInconsistencyError is fatal for the operation that observed it.
// Callers must stop and surface it; it is never repaired automatically.
type LedgerInconsistencyError struct {
	EntityType string
	EntityID   uuid.UUID
	Expected   decimal.Decimal // value recomputed from history
	Actual     decimal.Decimal // value stored on the entity
	Reason     string
}

func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency on %s %s: %s (history=%s, stored=%s)",
		e.EntityType, e.EntityID, e.Reason, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

// Unwrap exposes the coded domain error for generic handling.
func (e *LedgerInconsistencyError) Unwrap() error {
	return NewDomainError(CodeLedgerInconsistency, e.Error())
}

// Details returns the numeric context of the mismatch.
func (e *LedgerInconsistencyError) Details() map[string]any {
	return map[string]any{
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID.String(),
		"expected":    e.Expected.StringFixed(2),
		"actual":      e.Actual.StringFixed(2),
		"reason":      e.Reason,
	}
}

// NewLedgerInconsistency builds a LedgerInconsistencyError.
func NewLedgerInconsistency(entityType string, id uuid.UUID, expected, actual decimal.Decimal, reason string) *LedgerInconsistencyError {
	return &LedgerInconsistencyError{
		EntityType: entityType,
		EntityID:   id,
		Expected:   expected,
		Actual:     actual,
		Reason:     reason,
	}
}
