package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeTransient is used when the store failed temporarily and the
	// request may be retried
	ErrCodeTransient = "ERR_TRANSIENT_FAILURE"
	// ErrCodeUnavailable is used when an optional backend is not configured
	ErrCodeUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeRequestInProgress is returned while a request with the same
	// Idempotency-Key is still being processed
	ErrCodeRequestInProgress = "ERR_REQUEST_IN_PROGRESS"
)

// Business rule error codes
const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
)

// Ledger error codes
const (
	ErrCodeInvalidAmount       = "ERR_INVALID_AMOUNT"
	ErrCodeOverpayment         = "ERR_OVERPAYMENT_DETECTED"
	ErrCodeInsufficientCredit  = "ERR_INSUFFICIENT_CREDIT"
	ErrCodeRefundExceedsPaid   = "ERR_REFUND_EXCEEDS_PAID"
	ErrCodeInsufficientFunds   = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeLedgerInconsistency = "ERR_LEDGER_INCONSISTENCY"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeTransient:   http.StatusServiceUnavailable,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRequestInProgress:   http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,

	// Overpayment is a conflict the caller resolves by retrying with approval
	ErrCodeInvalidAmount:       http.StatusBadRequest,
	ErrCodeOverpayment:         http.StatusConflict,
	ErrCodeInsufficientCredit:  http.StatusUnprocessableEntity,
	ErrCodeRefundExceedsPaid:   http.StatusUnprocessableEntity,
	ErrCodeInsufficientFunds:   http.StatusUnprocessableEntity,
	ErrCodeLedgerInconsistency: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"TRANSIENT_FAILURE":    ErrCodeTransient,
	"INSUFFICIENT_BALANCE": ErrCodeInsufficientBalance,
	"ATTACHMENT_REQUIRED":  ErrCodeValidationRequired,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"INVALID_AMOUNT":       ErrCodeInvalidAmount,
	"OVERPAYMENT_DETECTED": ErrCodeOverpayment,
	"INSUFFICIENT_CREDIT":  ErrCodeInsufficientCredit,
	"REFUND_EXCEEDS_PAID":  ErrCodeRefundExceedsPaid,
	"INSUFFICIENT_FUNDS":   ErrCodeInsufficientFunds,
	"LEDGER_INCONSISTENCY": ErrCodeLedgerInconsistency,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unmapped INVALID_* codes are input errors, *_NOT_FOUND codes are missing
// resources, and any other domain code is a business rule violation.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	switch {
	case strings.HasPrefix(code, "ERR_"):
		return code
	case strings.HasSuffix(code, "NOT_FOUND"):
		return ErrCodeNotFound
	case strings.HasPrefix(code, "INVALID_"):
		return ErrCodeInvalidInput
	}
	return ErrCodeBusinessRule
}
