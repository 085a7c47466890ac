package persistence

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CreditHistorySortFields contains allowed sort fields for credit history entries
var CreditHistorySortFields = map[string]bool{
	"sequence":   true,
	"created_at": true,
	"amount":     true,
	"type":       true,
}

// SourceTransactionSortFields contains allowed sort fields for payment source transactions
var SourceTransactionSortFields = map[string]bool{
	"sequence":         true,
	"created_at":       true,
	"transaction_date": true,
	"amount":           true,
	"type":             true,
}

// ledgerOrder builds the ORDER BY clause for a ledger listing. Sequence is
// appended as a tie breaker so entries written in one transaction keep their
// append order.
func ledgerOrder(filter shared.Filter, allowed map[string]bool) string {
	dir := ValidateSortOrder(filter.OrderDir)
	field := ValidateSortField(filter.OrderBy, allowed, "sequence")
	if field == "sequence" {
		return "sequence " + dir
	}
	return field + " " + dir + ", sequence " + dir
}
