package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExpenseRepository implements ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense by ID within a tenant
func (r *GormExpenseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Expense, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the expense with SELECT ... FOR UPDATE
func (r *GormExpenseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Expense, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormExpenseRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Expense, error) {
	var model models.ExpenseModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new expense
func (r *GormExpenseRepository) Create(ctx context.Context, expense *finance.Expense) error {
	return translateError(r.db.WithContext(ctx).Create(models.ExpenseModelFromDomain(expense)).Error)
}

// SaveWithLock updates the expense with a version check
func (r *GormExpenseRepository) SaveWithLock(ctx context.Context, expense *finance.Expense) error {
	result := r.db.WithContext(ctx).
		Model(&models.ExpenseModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", expense.TenantID, expense.ID, expense.Version-1).
		Updates(map[string]any{
			"payment_source_id": expense.PaymentSourceID,
			"status":            expense.Status,
			"paid_at":           expense.PaidAt,
			"payment_method":    expense.PaymentMethod,
			"payment_reference": expense.PaymentReference,
			"attachment_ref":    expense.AttachmentRef,
			"notes":             expense.Notes,
			"version":           expense.Version,
			"updated_at":        expense.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GormExpensePaymentRepository implements ExpensePaymentRepository using GORM
type GormExpensePaymentRepository struct {
	db *gorm.DB
}

// NewGormExpensePaymentRepository creates a new GormExpensePaymentRepository
func NewGormExpensePaymentRepository(db *gorm.DB) *GormExpensePaymentRepository {
	return &GormExpensePaymentRepository{db: db}
}

// Create inserts a settlement record
func (r *GormExpensePaymentRepository) Create(ctx context.Context, payment *finance.ExpensePayment) error {
	return translateError(r.db.WithContext(ctx).Create(models.ExpensePaymentModelFromDomain(payment)).Error)
}

// FindByExpenseID returns the settlement records of an expense
func (r *GormExpensePaymentRepository) FindByExpenseID(ctx context.Context, tenantID, expenseID uuid.UUID) ([]*finance.ExpensePayment, error) {
	var rows []models.ExpensePaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND expense_id = ?", tenantID, expenseID).
		Order("paid_at ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]*finance.ExpensePayment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ finance.ExpenseRepository        = (*GormExpenseRepository)(nil)
	_ finance.ExpensePaymentRepository = (*GormExpensePaymentRepository)(nil)
)
