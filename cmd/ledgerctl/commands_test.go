package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) VerifyClientBalance(ctx context.Context, tenantID, id uuid.UUID) (*appfinance.BalanceVerification, error) {
	args := m.Called(ctx, tenantID, id)
	v, _ := args.Get(0).(*appfinance.BalanceVerification)
	return v, args.Error(1)
}

func (m *mockVerifier) VerifyPaymentSourceBalance(ctx context.Context, tenantID, id uuid.UUID) (*appfinance.BalanceVerification, error) {
	args := m.Called(ctx, tenantID, id)
	v, _ := args.Get(0).(*appfinance.BalanceVerification)
	return v, args.Error(1)
}

func (m *mockVerifier) VerifyInvoice(ctx context.Context, tenantID, id uuid.UUID) (*appfinance.BalanceVerification, error) {
	args := m.Called(ctx, tenantID, id)
	v, _ := args.Get(0).(*appfinance.BalanceVerification)
	return v, args.Error(1)
}

type mockReplayer struct{ mock.Mock }

func (m *mockReplayer) ReplayPendingCredits(ctx context.Context, limit int) (*appfinance.ReplayResult, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).(*appfinance.ReplayResult)
	return r, args.Error(1)
}

type harness struct {
	verifier *mockVerifier
	replayer *mockReplayer
	out      *bytes.Buffer
	opened   int
	closed   int
	openErr  error
}

func newHarness() *harness {
	return &harness{verifier: new(mockVerifier), replayer: new(mockReplayer), out: new(bytes.Buffer)}
}

func (h *harness) run(args ...string) error {
	open := func(context.Context, string) (*services, error) {
		if h.openErr != nil {
			return nil, h.openErr
		}
		h.opened++
		return &services{
			verifier:     h.verifier,
			replayer:     h.replayer,
			defaultBatch: 100,
			close:        func() error { h.closed++; return nil },
		}, nil
	}
	root := newRootCmd(open, h.out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func decodeOutput(t *testing.T, b *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &out))
	return out
}

func TestVerifyClientConsistent(t *testing.T) {
	h := newHarness()
	tenantID, clientID := uuid.New(), uuid.New()
	h.verifier.On("VerifyClientBalance", mock.Anything, tenantID, clientID).Return(&appfinance.BalanceVerification{
		EntityType:        "client",
		EntityID:          clientID,
		StoredBalance:     decimal.RequireFromString("25"),
		RecomputedBalance: decimal.RequireFromString("25"),
		EntryCount:        3,
		Consistent:        true,
	}, nil)

	err := h.run("verify", "client", clientID.String(), "--tenant", tenantID.String())
	require.NoError(t, err)

	out := decodeOutput(t, h.out)
	assert.Equal(t, "25.00", out["stored_balance"])
	assert.Equal(t, true, out["consistent"])
	assert.Equal(t, float64(3), out["entry_count"])
	assert.NotContains(t, out, "reason")
	assert.Equal(t, 1, h.closed)
}

func TestVerifySourceInconsistentExitsWithError(t *testing.T) {
	h := newHarness()
	tenantID, sourceID := uuid.New(), uuid.New()
	h.verifier.On("VerifyPaymentSourceBalance", mock.Anything, tenantID, sourceID).Return(&appfinance.BalanceVerification{
		EntityType:        "payment_source",
		EntityID:          sourceID,
		StoredBalance:     decimal.RequireFromString("100"),
		RecomputedBalance: decimal.RequireFromString("90"),
		EntryCount:        2,
		Inconsistency: &shared.LedgerInconsistencyError{
			EntityType: "payment_source",
			EntityID:   sourceID,
			Reason:     "balance does not match transaction history",
		},
	}, nil)

	err := h.run("verify", "source", sourceID.String(), "--tenant", tenantID.String())
	require.ErrorIs(t, err, errInconsistent)

	out := decodeOutput(t, h.out)
	assert.Equal(t, "90.00", out["recomputed_balance"])
	assert.Equal(t, false, out["consistent"])
	assert.Equal(t, "balance does not match transaction history", out["reason"])
}

func TestVerifyInvoicePropagatesLookupError(t *testing.T) {
	h := newHarness()
	tenantID, invoiceID := uuid.New(), uuid.New()
	notFound := shared.NewDomainError("INVOICE_NOT_FOUND", "invoice not found")
	h.verifier.On("VerifyInvoice", mock.Anything, tenantID, invoiceID).Return(nil, notFound)

	err := h.run("verify", "invoice", invoiceID.String(), "--tenant", tenantID.String())
	require.ErrorIs(t, err, notFound)
	assert.Empty(t, h.out.String())
	assert.Equal(t, 1, h.closed)
}

func TestVerifyRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing tenant", []string{"verify", "client", uuid.NewString()}},
		{"bad tenant", []string{"verify", "client", uuid.NewString(), "--tenant", "acme"}},
		{"bad id", []string{"verify", "invoice", "INV-1", "--tenant", uuid.NewString()}},
		{"missing id", []string{"verify", "source", "--tenant", uuid.NewString()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			assert.Error(t, h.run(tt.args...))
			assert.Zero(t, h.opened)
		})
	}
}

func TestCreditsReplayUsesConfiguredBatch(t *testing.T) {
	h := newHarness()
	h.replayer.On("ReplayPendingCredits", mock.Anything, 100).Return(&appfinance.ReplayResult{Applied: 4, Failed: 1}, nil)

	require.NoError(t, h.run("credits", "replay"))

	out := decodeOutput(t, h.out)
	assert.Equal(t, float64(4), out["applied"])
	assert.Equal(t, float64(1), out["failed"])
	h.replayer.AssertExpectations(t)
}

func TestCreditsReplayLimitFlag(t *testing.T) {
	h := newHarness()
	h.replayer.On("ReplayPendingCredits", mock.Anything, 10).Return(&appfinance.ReplayResult{}, nil)

	require.NoError(t, h.run("credits", "replay", "--limit", "10"))
	h.replayer.AssertExpectations(t)
}

func TestCreditsReplayNegativeLimit(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.run("credits", "replay", "--limit=-1"))
	assert.Zero(t, h.opened)
}

func TestOpenFailureIsReturned(t *testing.T) {
	h := newHarness()
	h.openErr = errors.New("connection refused")

	err := h.run("credits", "replay")
	assert.EqualError(t, err, "connection refused")
}
