package finance

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AttachmentVerifier confirms that an uploaded receipt exists in object storage
type AttachmentVerifier interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ExpenseSettlementService marks expenses paid and debits the payment source
// they were assigned to, in one transaction.
type ExpenseSettlementService struct {
	ledgerRuntime
	sources     *PaymentSourceLedgerService
	attachments AttachmentVerifier
}

// NewExpenseSettlementService creates a new ExpenseSettlementService.
// attachments may be nil, in which case receipts are not looked up.
func NewExpenseSettlementService(config LedgerConfig, sources *PaymentSourceLedgerService, attachments AttachmentVerifier) *ExpenseSettlementService {
	return &ExpenseSettlementService{
		ledgerRuntime: newLedgerRuntime(config),
		sources:       sources,
		attachments:   attachments,
	}
}

// SettleExpense records the settlement of an expense
func (s *ExpenseSettlementService) SettleExpense(ctx context.Context, in SettleExpenseInput) (*SettleExpenseResult, error) {
	if err := finance.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if s.attachments != nil && in.AttachmentRef != "" {
		exists, err := s.attachments.ObjectExists(ctx, in.AttachmentRef)
		if err != nil {
			return nil, fmt.Errorf("check attachment: %w", err)
		}
		if !exists {
			return nil, shared.NewDomainError("ATTACHMENT_NOT_FOUND",
				fmt.Sprintf("Attachment %s was not found", in.AttachmentRef))
		}
	}

	var result *SettleExpenseResult
	var source *finance.PaymentSource
	err := s.inTx(ctx, "expense.settle", func(repos TransactionalRepositories) error {
		result, source = nil, nil

		expense, err := repos.ExpenseRepo().FindByIDForUpdate(ctx, in.TenantID, in.ExpenseID)
		if err != nil {
			return err
		}
		payment, err := expense.Settle(finance.SettleInput{
			Amount:        in.Amount,
			Method:        in.Method,
			Reference:     in.Reference,
			AttachmentRef: in.AttachmentRef,
			Notes:         in.Notes,
		})
		if err != nil {
			return err
		}
		if err := repos.ExpensePaymentRepo().Create(ctx, payment); err != nil {
			return err
		}
		if err := repos.ExpenseRepo().SaveWithLock(ctx, expense); err != nil {
			return err
		}

		res := &SettleExpenseResult{Expense: expense, Payment: payment}
		if expense.PaymentSourceID != nil {
			src, err := s.sources.LockSource(ctx, repos, in.TenantID, *expense.PaymentSourceID)
			if err != nil {
				return err
			}
			tx, err := s.sources.DebitLocked(ctx, repos, src, in.Amount, expense.ID, in.Reference, in.SettledBy)
			if err != nil {
				return err
			}
			res.Transaction = tx
			source = src
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, s.observe(ctx, "expense.settle", err)
	}

	s.logger.Info("Expense settled",
		zap.String("expense_id", result.Expense.ID.String()),
		zap.String("amount", result.Payment.Amount.StringFixed(2)),
		zap.Bool("source_debited", result.Transaction != nil))
	if source != nil {
		s.sources.afterCommit(ctx, source, result.Transaction)
	}
	s.publish(ctx, result.Expense)
	return result, nil
}
