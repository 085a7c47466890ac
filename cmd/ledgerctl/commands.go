package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// errInconsistent makes verify exit non-zero when history and balance disagree
var errInconsistent = errors.New("ledger inconsistency detected")

type verifier interface {
	VerifyClientBalance(ctx context.Context, tenantID, clientID uuid.UUID) (*appfinance.BalanceVerification, error)
	VerifyPaymentSourceBalance(ctx context.Context, tenantID, sourceID uuid.UUID) (*appfinance.BalanceVerification, error)
	VerifyInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appfinance.BalanceVerification, error)
}

type replayer interface {
	ReplayPendingCredits(ctx context.Context, limit int) (*appfinance.ReplayResult, error)
}

type services struct {
	verifier     verifier
	replayer     replayer
	defaultBatch int
	close        func() error
}

type openFunc func(ctx context.Context, logLevel string) (*services, error)

type verifyOutput struct {
	EntityType        string `json:"entity_type"`
	EntityID          string `json:"entity_id"`
	StoredBalance     string `json:"stored_balance"`
	RecomputedBalance string `json:"recomputed_balance"`
	EntryCount        int    `json:"entry_count"`
	Consistent        bool   `json:"consistent"`
	Reason            string `json:"reason,omitempty"`
}

func newRootCmd(open openFunc, out io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Ledger maintenance commands",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	withServices := func(cmd *cobra.Command, fn func(*services) error) error {
		svc, err := open(cmd.Context(), logLevel)
		if err != nil {
			return err
		}
		defer func() { _ = svc.close() }()
		return fn(svc)
	}

	root.AddCommand(newVerifyCmd(withServices), newCreditsCmd(withServices))
	return root
}

func newVerifyCmd(with func(*cobra.Command, func(*services) error) error) *cobra.Command {
	var tenant string

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Recompute a cached balance from its history",
		Long: `Replays the history behind a client credit balance, a payment source
balance or an invoice paid amount and compares it with the stored value.
Exits non-zero when they disagree.`,
		Example: `  ledgerctl verify client 6f1c... --tenant 0a9e...
  ledgerctl verify source 81d2... --tenant 0a9e...
  ledgerctl verify invoice 3b77... --tenant 0a9e...`,
	}
	verify.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	_ = verify.MarkPersistentFlagRequired("tenant")

	sub := func(use, short string, run func(verifier, context.Context, uuid.UUID, uuid.UUID) (*appfinance.BalanceVerification, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tenantID, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("invalid tenant ID: %w", err)
				}
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid %s ID: %w", use, err)
				}
				return with(cmd, func(svc *services) error {
					v, err := run(svc.verifier, cmd.Context(), tenantID, id)
					if err != nil {
						return err
					}
					if err := writeJSON(cmd.OutOrStdout(), toVerifyOutput(v)); err != nil {
						return err
					}
					if !v.Consistent {
						return errInconsistent
					}
					return nil
				})
			},
		}
	}

	verify.AddCommand(
		sub("client", "Verify a client's credit balance", verifier.VerifyClientBalance),
		sub("source", "Verify a payment source balance", verifier.VerifyPaymentSourceBalance),
		sub("invoice", "Verify an invoice's paid amount", verifier.VerifyInvoice),
	)
	return verify
}

func newCreditsCmd(with func(*cobra.Command, func(*services) error) error) *cobra.Command {
	credits := &cobra.Command{
		Use:   "credits",
		Short: "Client credit maintenance",
	}

	var limit int
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Settle overpayments whose credit was not written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit cannot be negative")
			}
			return with(cmd, func(svc *services) error {
				batch := limit
				if batch == 0 {
					batch = svc.defaultBatch
				}
				result, err := svc.replayer.ReplayPendingCredits(cmd.Context(), batch)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"applied": result.Applied,
					"failed":  result.Failed,
				})
			})
		},
	}
	replay.Flags().IntVar(&limit, "limit", 0, "Maximum pending credits to process (default from ledger.replay_batch)")

	credits.AddCommand(replay)
	return credits
}

func toVerifyOutput(v *appfinance.BalanceVerification) verifyOutput {
	out := verifyOutput{
		EntityType:        v.EntityType,
		EntityID:          v.EntityID.String(),
		StoredBalance:     v.StoredBalance.StringFixed(2),
		RecomputedBalance: v.RecomputedBalance.StringFixed(2),
		EntryCount:        v.EntryCount,
		Consistent:        v.Consistent,
	}
	if v.Inconsistency != nil {
		out.Reason = v.Inconsistency.Reason
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
