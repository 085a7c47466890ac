package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError("NOT_FOUND", "Invoice not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("load invoice: %w", err), ErrNotFound)
	assert.False(t, errors.Is(err, ErrInvalidState))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConcurrencyConflict))
	assert.True(t, IsRetryable(fmt.Errorf("%w: deadlock detected", ErrTransientFailure)))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestLedgerInconsistencyError(t *testing.T) {
	id := uuid.New()
	err := NewLedgerInconsistency("Client", id, decimal.NewFromInt(10), decimal.NewFromInt(12), "drift")

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeLedgerInconsistency, domainErr.Code)
	assert.Contains(t, err.Error(), "history=10.00")
	assert.Equal(t, "12.00", err.Details()["actual"])
	assert.Equal(t, id.String(), err.Details()["entity_id"])
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, DefaultFilter().Offset()+10)
	assert.Equal(t, 10, Filter{Page: 2, PageSize: 10}.Offset())

	assert.Equal(t, 1, NewPaginated([]int{1, 2, 3}, 3, 1, 0).TotalPages)
	assert.Equal(t, 0, NewPaginated([]int{}, 0, 1, 20).TotalPages)
	assert.Equal(t, 0, Filter{Page: 3}.Offset())
}
