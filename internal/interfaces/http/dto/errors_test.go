package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeTransient, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeRequestInProgress, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidAmount, http.StatusBadRequest},
		{ErrCodeOverpayment, http.StatusConflict},
		{ErrCodeInsufficientCredit, http.StatusUnprocessableEntity},
		{ErrCodeRefundExceedsPaid, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientFunds, http.StatusUnprocessableEntity},
		{ErrCodeLedgerInconsistency, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"INVALID_AMOUNT", ErrCodeInvalidAmount},
		{"OVERPAYMENT_DETECTED", ErrCodeOverpayment},
		{"INSUFFICIENT_CREDIT", ErrCodeInsufficientCredit},
		{"LEDGER_INCONSISTENCY", ErrCodeLedgerInconsistency},
		// Derived from naming conventions
		{"ATTACHMENT_NOT_FOUND", ErrCodeNotFound},
		{"INVALID_PAYMENT_METHOD", ErrCodeInvalidInput},
		{"HAS_PAYMENTS", ErrCodeBusinessRule},
		// Already normalized
		{ErrCodeForbidden, ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithDetails(ErrCodeOverpayment, "too much", "req-1", map[string]any{
		"overpayment_amount": "10.00",
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeOverpayment, errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.Equal(t, "10.00", errObj["details"].(map[string]any)["overpayment_amount"])
	assert.NotContains(t, errObj, "fields")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestListRequest_Normalize(t *testing.T) {
	req := ListRequest{}
	req.Normalize()
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 20, req.PageSize)

	req = ListRequest{Page: 3, PageSize: 50}
	req.Normalize()
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 50, req.PageSize)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("bad", "r", []ValidationDetail{{Field: "amount", Message: "required"}})
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Fields, 1)
}
