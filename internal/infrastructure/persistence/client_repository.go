package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by ID within a tenant
func (r *GormClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the client with SELECT ... FOR UPDATE
func (r *GormClientRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormClientRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*partner.Client, error) {
	var model models.ClientModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new client
func (r *GormClientRepository) Create(ctx context.Context, client *partner.Client) error {
	return translateError(r.db.WithContext(ctx).Create(models.ClientModelFromDomain(client)).Error)
}

// SaveWithLock updates the client with a version check
func (r *GormClientRepository) SaveWithLock(ctx context.Context, client *partner.Client) error {
	result := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", client.TenantID, client.ID, client.Version-1).
		Updates(map[string]any{
			"name":           client.Name,
			"email":          client.Email,
			"status":         client.Status,
			"credit_balance": client.CreditBalance,
			"version":        client.Version,
			"updated_at":     client.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GormCreditHistoryRepository implements CreditHistoryRepository using GORM
type GormCreditHistoryRepository struct {
	db *gorm.DB
}

// NewGormCreditHistoryRepository creates a new GormCreditHistoryRepository
func NewGormCreditHistoryRepository(db *gorm.DB) *GormCreditHistoryRepository {
	return &GormCreditHistoryRepository{db: db}
}

// Create appends an entry
func (r *GormCreditHistoryRepository) Create(ctx context.Context, entry *partner.CreditHistoryEntry) error {
	return translateError(r.db.WithContext(ctx).Create(models.CreditHistoryModelFromDomain(entry)).Error)
}

// FindByClientID returns a page of entries, newest first unless the filter orders otherwise
func (r *GormCreditHistoryRepository) FindByClientID(ctx context.Context, tenantID, clientID uuid.UUID, filter shared.Filter) ([]*partner.CreditHistoryEntry, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.CreditHistoryModel{}).
			Where("tenant_id = ? AND client_id = ?", tenantID, clientID)
		if filter.EntryType != "" {
			db = db.Where("type = ?", filter.EntryType)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.CreditHistoryModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Order(ledgerOrder(filter, CreditHistorySortFields)).
		Offset(filter.Offset()).
		Limit(pageSize(filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return creditEntriesToDomain(rows), total, nil
}

// FindAllByClientID returns the full history, oldest first
func (r *GormCreditHistoryRepository) FindAllByClientID(ctx context.Context, tenantID, clientID uuid.UUID) ([]*partner.CreditHistoryEntry, error) {
	var rows []models.CreditHistoryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return creditEntriesToDomain(rows), nil
}

// GetLatestByClientID returns the newest entry, or nil when there is none
func (r *GormCreditHistoryRepository) GetLatestByClientID(ctx context.Context, tenantID, clientID uuid.UUID) (*partner.CreditHistoryEntry, error) {
	return r.first(r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Order("sequence DESC"))
}

// FindByPaymentID returns the entry of the given type written for a payment, or nil
func (r *GormCreditHistoryRepository) FindByPaymentID(ctx context.Context, tenantID, paymentID uuid.UUID, entryType partner.CreditEntryType) (*partner.CreditHistoryEntry, error) {
	return r.first(r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ? AND type = ?", tenantID, paymentID, entryType))
}

func (r *GormCreditHistoryRepository) first(query *gorm.DB) (*partner.CreditHistoryEntry, error) {
	var model models.CreditHistoryModel
	err := query.First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

func creditEntriesToDomain(rows []models.CreditHistoryModel) []*partner.CreditHistoryEntry {
	out := make([]*partner.CreditHistoryEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var (
	_ partner.ClientRepository        = (*GormClientRepository)(nil)
	_ partner.CreditHistoryRepository = (*GormCreditHistoryRepository)(nil)
)
