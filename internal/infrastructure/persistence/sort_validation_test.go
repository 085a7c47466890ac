package persistence

import (
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder(" asc "))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder("sideways"))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "amount", ValidateSortField("amount", CreditHistorySortFields, "sequence"))
	assert.Equal(t, "sequence", ValidateSortField("amount; DROP TABLE clients", CreditHistorySortFields, "sequence"))
	assert.Equal(t, "sequence", ValidateSortField("", CreditHistorySortFields, "sequence"))
	assert.Equal(t, "sequence", ValidateSortField("transaction_date", CreditHistorySortFields, "sequence"))
}

func TestLedgerOrder(t *testing.T) {
	tests := []struct {
		name    string
		filter  shared.Filter
		allowed map[string]bool
		want    string
	}{
		{"default filter", shared.DefaultFilter(), CreditHistorySortFields, "created_at DESC, sequence DESC"},
		{"empty filter", shared.Filter{}, CreditHistorySortFields, "sequence DESC"},
		{"sequence ascending", shared.Filter{OrderBy: "sequence", OrderDir: "asc"}, SourceTransactionSortFields, "sequence ASC"},
		{"amount", shared.Filter{OrderBy: "amount", OrderDir: "asc"}, SourceTransactionSortFields, "amount ASC, sequence ASC"},
		{"unknown field", shared.Filter{OrderBy: "balance_after"}, SourceTransactionSortFields, "sequence DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledgerOrder(tt.filter, tt.allowed))
		})
	}
}
