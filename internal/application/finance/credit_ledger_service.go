package finance

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditLedgerService maintains client credit balances together with their
// append-only credit history. Every balance change and its history entry are
// written in one transaction while the client row is locked.
type CreditLedgerService struct {
	ledgerRuntime
}

// NewCreditLedgerService creates a new CreditLedgerService
func NewCreditLedgerService(config LedgerConfig) *CreditLedgerService {
	return &CreditLedgerService{ledgerRuntime: newLedgerRuntime(config)}
}

// AddCredit grows a client's credit balance and returns the new balance
func (s *CreditLedgerService) AddCredit(
	ctx context.Context,
	tenantID, clientID uuid.UUID,
	amount decimal.Decimal,
	cc partner.CreditContext,
) (decimal.Decimal, error) {
	var client *partner.Client
	var entry *partner.CreditHistoryEntry
	err := s.inTx(ctx, "credit.add", func(repos TransactionalRepositories) error {
		var err error
		client, err = s.LockClient(ctx, repos, tenantID, clientID)
		if err != nil {
			return err
		}
		entry, err = s.AddLocked(ctx, repos, client, amount, cc)
		return err
	})
	if err != nil {
		return decimal.Zero, s.observe(ctx, "credit.add", err)
	}
	s.afterCommit(ctx, client, entry)
	return entry.NewBalance, nil
}

// SpendCredit consumes client credit as credit_used or credit_applied and
// returns the new balance
func (s *CreditLedgerService) SpendCredit(
	ctx context.Context,
	tenantID, clientID uuid.UUID,
	amount decimal.Decimal,
	entryType partner.CreditEntryType,
	cc partner.CreditContext,
) (decimal.Decimal, error) {
	var client *partner.Client
	var entry *partner.CreditHistoryEntry
	err := s.inTx(ctx, "credit.spend", func(repos TransactionalRepositories) error {
		var err error
		client, err = s.LockClient(ctx, repos, tenantID, clientID)
		if err != nil {
			return err
		}
		entry, err = s.SpendLocked(ctx, repos, client, amount, entryType, cc)
		return err
	})
	if err != nil {
		return decimal.Zero, s.observe(ctx, "credit.spend", err)
	}
	s.afterCommit(ctx, client, entry)
	return entry.NewBalance, nil
}

// RefundClientCredit pays part of a client's credit back outside the system
func (s *CreditLedgerService) RefundClientCredit(ctx context.Context, in RefundCreditInput) (*RefundCreditResult, error) {
	if err := finance.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Method.IsExternal() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Credit can only be refunded through an external payment method")
	}

	cc := partner.CreditContext{
		Reference:   in.Reference,
		Description: fmt.Sprintf("Credit refunded via %s", in.Method),
		OperatorID:  in.OperatorID,
	}
	var client *partner.Client
	var entry *partner.CreditHistoryEntry
	err := s.inTx(ctx, "credit.refund", func(repos TransactionalRepositories) error {
		var err error
		client, err = s.LockClient(ctx, repos, in.TenantID, in.ClientID)
		if err != nil {
			return err
		}
		if entry, err = client.RefundCredit(in.Amount, cc); err != nil {
			return err
		}
		return s.persist(ctx, repos, client, entry)
	})
	if err != nil {
		return nil, s.observe(ctx, "credit.refund", err)
	}
	s.afterCommit(ctx, client, entry)
	return &RefundCreditResult{Client: client, Entry: entry, NewCreditBalance: entry.NewBalance}, nil
}

// GetClientCredit returns the cached balance with a page of history, newest first
func (s *CreditLedgerService) GetClientCredit(ctx context.Context, tenantID, clientID uuid.UUID, filter shared.Filter) (*ClientCreditResult, error) {
	result := &ClientCreditResult{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		client, err := repos.ClientRepo().FindByID(ctx, tenantID, clientID)
		if err != nil {
			return err
		}
		entries, total, err := repos.CreditHistoryRepo().FindByClientID(ctx, tenantID, clientID, filter)
		if err != nil {
			return err
		}
		result.Client = client
		result.History = shared.NewPaginated(entries, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LockClient loads the client for update inside repos' transaction and
// checks the cached balance against the newest history entry.
func (s *CreditLedgerService) LockClient(ctx context.Context, repos TransactionalRepositories, tenantID, clientID uuid.UUID) (*partner.Client, error) {
	client, err := repos.ClientRepo().FindByIDForUpdate(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	latest, err := repos.CreditHistoryRepo().GetLatestByClientID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if err := client.CheckLatest(latest); err != nil {
		return nil, err
	}
	return client, nil
}

// AddLocked adds credit to a client already locked in repos' transaction
func (s *CreditLedgerService) AddLocked(
	ctx context.Context,
	repos TransactionalRepositories,
	client *partner.Client,
	amount decimal.Decimal,
	cc partner.CreditContext,
) (*partner.CreditHistoryEntry, error) {
	entry, err := client.AddCredit(amount, cc)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, repos, client, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SpendLocked spends credit of a client already locked in repos' transaction
func (s *CreditLedgerService) SpendLocked(
	ctx context.Context,
	repos TransactionalRepositories,
	client *partner.Client,
	amount decimal.Decimal,
	entryType partner.CreditEntryType,
	cc partner.CreditContext,
) (*partner.CreditHistoryEntry, error) {
	entry, err := client.SpendCredit(amount, entryType, cc)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, repos, client, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// persist writes the history entry before the balance so both land or neither does.
func (s *CreditLedgerService) persist(ctx context.Context, repos TransactionalRepositories, client *partner.Client, entry *partner.CreditHistoryEntry) error {
	if err := repos.CreditHistoryRepo().Create(ctx, entry); err != nil {
		return err
	}
	return repos.ClientRepo().SaveWithLock(ctx, client)
}

func (s *CreditLedgerService) afterCommit(ctx context.Context, client *partner.Client, entry *partner.CreditHistoryEntry) {
	s.metrics.RecordCreditMovement(ctx, entry.Type.String(), entry.Amount)
	s.logger.Info("Client credit changed",
		zap.String("client_id", client.ID.String()),
		zap.String("entry_type", entry.Type.String()),
		zap.String("amount", entry.Amount.StringFixed(2)),
		zap.String("new_balance", entry.NewBalance.StringFixed(2)))
	s.publish(ctx, client)
}
