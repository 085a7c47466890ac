package finance

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentSourceLedgerService maintains payment source balances together with
// their transaction history.
type PaymentSourceLedgerService struct {
	ledgerRuntime
}

// NewPaymentSourceLedgerService creates a new PaymentSourceLedgerService
func NewPaymentSourceLedgerService(config LedgerConfig) *PaymentSourceLedgerService {
	return &PaymentSourceLedgerService{ledgerRuntime: newLedgerRuntime(config)}
}

// Debit takes amount out of a source to pay an expense
func (s *PaymentSourceLedgerService) Debit(
	ctx context.Context,
	tenantID, sourceID uuid.UUID,
	amount decimal.Decimal,
	expenseID uuid.UUID,
	reference string,
) (*finance.PaymentSourceTransaction, error) {
	return s.mutate(ctx, "source.debit", tenantID, sourceID, func(ctx context.Context, repos TransactionalRepositories, source *finance.PaymentSource) (*finance.PaymentSourceTransaction, error) {
		return s.DebitLocked(ctx, repos, source, amount, expenseID, reference, nil)
	})
}

// Credit puts amount into a source
func (s *PaymentSourceLedgerService) Credit(
	ctx context.Context,
	tenantID, sourceID uuid.UUID,
	amount decimal.Decimal,
	description, reference string,
) (*finance.PaymentSourceTransaction, error) {
	return s.mutate(ctx, "source.credit", tenantID, sourceID, func(ctx context.Context, repos TransactionalRepositories, source *finance.PaymentSource) (*finance.PaymentSourceTransaction, error) {
		tx, err := source.Credit(amount, description, reference)
		if err != nil {
			return nil, err
		}
		return tx, s.persist(ctx, repos, source, tx)
	})
}

// AdjustBalance applies a signed correction to a source's balance
func (s *PaymentSourceLedgerService) AdjustBalance(ctx context.Context, in AdjustBalanceInput) (*AdjustBalanceResult, error) {
	if in.Amount.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code, "Adjustment amount cannot be zero")
	}
	if err := finance.ValidateAmount(in.Amount.Abs()); err != nil {
		return nil, err
	}

	var source *finance.PaymentSource
	tx, err := s.mutate(ctx, "source.adjust", in.TenantID, in.SourceID, func(ctx context.Context, repos TransactionalRepositories, locked *finance.PaymentSource) (*finance.PaymentSourceTransaction, error) {
		source = locked
		tx, err := locked.Adjust(in.Amount, in.Description, in.Type)
		if err != nil {
			return nil, err
		}
		if in.OperatorID != nil {
			tx.WithCreatedBy(*in.OperatorID)
		}
		return tx, s.persist(ctx, repos, locked, tx)
	})
	if err != nil {
		return nil, err
	}
	return &AdjustBalanceResult{Source: source, Transaction: tx}, nil
}

// GetPaymentSource returns a source with its cached balance
func (s *PaymentSourceLedgerService) GetPaymentSource(ctx context.Context, tenantID, sourceID uuid.UUID) (*finance.PaymentSource, error) {
	var source *finance.PaymentSource
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		source, err = repos.PaymentSourceRepo().FindByID(ctx, tenantID, sourceID)
		return err
	})
	return source, err
}

// ListTransactions returns a page of a source's transactions, newest first
func (s *PaymentSourceLedgerService) ListTransactions(
	ctx context.Context,
	tenantID, sourceID uuid.UUID,
	filter shared.Filter,
) (shared.Paginated[*finance.PaymentSourceTransaction], error) {
	var page shared.Paginated[*finance.PaymentSourceTransaction]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.PaymentSourceRepo().FindByID(ctx, tenantID, sourceID); err != nil {
			return err
		}
		txs, total, err := repos.PaymentSourceTransactionRepo().FindBySourceID(ctx, tenantID, sourceID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(txs, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

// LockSource loads a source for update inside repos' transaction and checks
// its cached balance against the newest transaction.
func (s *PaymentSourceLedgerService) LockSource(ctx context.Context, repos TransactionalRepositories, tenantID, sourceID uuid.UUID) (*finance.PaymentSource, error) {
	source, err := repos.PaymentSourceRepo().FindByIDForUpdate(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	latest, err := repos.PaymentSourceTransactionRepo().GetLatestBySourceID(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if err := source.CheckLatest(latest); err != nil {
		return nil, err
	}
	return source, nil
}

// DebitLocked debits a source already locked in repos' transaction
func (s *PaymentSourceLedgerService) DebitLocked(
	ctx context.Context,
	repos TransactionalRepositories,
	source *finance.PaymentSource,
	amount decimal.Decimal,
	expenseID uuid.UUID,
	reference string,
	createdBy *uuid.UUID,
) (*finance.PaymentSourceTransaction, error) {
	tx, err := source.Debit(amount, expenseID, reference)
	if err != nil {
		return nil, err
	}
	if createdBy != nil {
		tx.WithCreatedBy(*createdBy)
	}
	return tx, s.persist(ctx, repos, source, tx)
}

type sourceMutation func(ctx context.Context, repos TransactionalRepositories, source *finance.PaymentSource) (*finance.PaymentSourceTransaction, error)

func (s *PaymentSourceLedgerService) mutate(ctx context.Context, operation string, tenantID, sourceID uuid.UUID, fn sourceMutation) (*finance.PaymentSourceTransaction, error) {
	var source *finance.PaymentSource
	var tx *finance.PaymentSourceTransaction
	err := s.inTx(ctx, operation, func(repos TransactionalRepositories) error {
		var err error
		source, err = s.LockSource(ctx, repos, tenantID, sourceID)
		if err != nil {
			return err
		}
		tx, err = fn(ctx, repos, source)
		return err
	})
	if err != nil {
		return nil, s.observe(ctx, operation, err)
	}
	s.afterCommit(ctx, source, tx)
	return tx, nil
}

func (s *PaymentSourceLedgerService) persist(ctx context.Context, repos TransactionalRepositories, source *finance.PaymentSource, tx *finance.PaymentSourceTransaction) error {
	if err := repos.PaymentSourceTransactionRepo().Create(ctx, tx); err != nil {
		return err
	}
	return repos.PaymentSourceRepo().SaveWithLock(ctx, source)
}

func (s *PaymentSourceLedgerService) afterCommit(ctx context.Context, source *finance.PaymentSource, tx *finance.PaymentSourceTransaction) {
	s.metrics.RecordSourceMovement(ctx, string(tx.Type), tx.Amount)
	s.logger.Info("Payment source balance changed",
		zap.String("source_id", source.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.StringFixed(2)),
		zap.String("balance_after", tx.BalanceAfter.StringFixed(2)))
	s.publish(ctx, source)
}
