package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentSourceRepository implements PaymentSourceRepository using GORM
type GormPaymentSourceRepository struct {
	db *gorm.DB
}

// NewGormPaymentSourceRepository creates a new GormPaymentSourceRepository
func NewGormPaymentSourceRepository(db *gorm.DB) *GormPaymentSourceRepository {
	return &GormPaymentSourceRepository{db: db}
}

// FindByID finds a payment source by ID within a tenant
func (r *GormPaymentSourceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentSource, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the payment source with SELECT ... FOR UPDATE
func (r *GormPaymentSourceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentSource, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormPaymentSourceRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*finance.PaymentSource, error) {
	var model models.PaymentSourceModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new payment source
func (r *GormPaymentSourceRepository) Create(ctx context.Context, source *finance.PaymentSource) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentSourceModelFromDomain(source)).Error)
}

// SaveWithLock updates the cached balance with a version check
func (r *GormPaymentSourceRepository) SaveWithLock(ctx context.Context, source *finance.PaymentSource) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentSourceModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", source.TenantID, source.ID, source.Version-1).
		Updates(map[string]any{
			"name":            source.Name,
			"current_balance": source.CurrentBalance,
			"is_active":       source.IsActive,
			"version":         source.Version,
			"updated_at":      source.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GormPaymentSourceTransactionRepository implements PaymentSourceTransactionRepository using GORM
type GormPaymentSourceTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentSourceTransactionRepository creates a new GormPaymentSourceTransactionRepository
func NewGormPaymentSourceTransactionRepository(db *gorm.DB) *GormPaymentSourceTransactionRepository {
	return &GormPaymentSourceTransactionRepository{db: db}
}

// Create appends a ledger row
func (r *GormPaymentSourceTransactionRepository) Create(ctx context.Context, tx *finance.PaymentSourceTransaction) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentSourceTransactionModelFromDomain(tx)).Error)
}

// FindBySourceID returns a page of transactions, newest first
func (r *GormPaymentSourceTransactionRepository) FindBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID, filter shared.Filter) ([]*finance.PaymentSourceTransaction, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.PaymentSourceTransactionModel{}).
			Where("tenant_id = ? AND payment_source_id = ?", tenantID, sourceID)
		if filter.EntryType != "" {
			db = db.Where("type = ?", filter.EntryType)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.PaymentSourceTransactionModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Order(ledgerOrder(filter, SourceTransactionSortFields)).
		Offset(filter.Offset()).
		Limit(pageSize(filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return sourceTransactionsToDomain(rows), total, nil
}

// FindAllBySourceID returns the full history, oldest first
func (r *GormPaymentSourceTransactionRepository) FindAllBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID) ([]*finance.PaymentSourceTransaction, error) {
	var rows []models.PaymentSourceTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_source_id = ?", tenantID, sourceID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return sourceTransactionsToDomain(rows), nil
}

// GetLatestBySourceID returns the newest transaction, or nil when there is none
func (r *GormPaymentSourceTransactionRepository) GetLatestBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID) (*finance.PaymentSourceTransaction, error) {
	var model models.PaymentSourceTransactionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_source_id = ?", tenantID, sourceID).
		Order("sequence DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

func sourceTransactionsToDomain(rows []models.PaymentSourceTransactionModel) []*finance.PaymentSourceTransaction {
	out := make([]*finance.PaymentSourceTransaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// pageSize returns the LIMIT for a filter; -1 disables it
func pageSize(filter shared.Filter) int {
	if filter.PageSize <= 0 {
		return -1
	}
	return filter.PageSize
}

var (
	_ finance.PaymentSourceRepository            = (*GormPaymentSourceRepository)(nil)
	_ finance.PaymentSourceTransactionRepository = (*GormPaymentSourceTransactionRepository)(nil)
)
