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

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the invoice with SELECT ... FOR UPDATE
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormInvoiceRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *finance.Invoice) error {
	return translateError(r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error)
}

// SaveWithLock updates the invoice when the stored version is the one it was
// loaded with.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", invoice.TenantID, invoice.ID, invoice.Version-1).
		Updates(map[string]any{
			"paid_amount": invoice.PaidAmount,
			"status":      invoice.Status,
			"paid_date":   invoice.PaidDate,
			"due_date":    invoice.DueDate,
			"notes":       invoice.Notes,
			"version":     invoice.Version,
			"updated_at":  invoice.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create appends a payment or refund
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error)
}

// FindByID finds a payment by ID within a tenant
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByInvoiceID returns the invoice's payment history in the order it was written
func (r *GormPaymentRepository) FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*finance.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	payments := make([]*finance.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments, nil
}

// GormPendingCreditRepository implements PendingCreditRepository using GORM
type GormPendingCreditRepository struct {
	db *gorm.DB
}

// NewGormPendingCreditRepository creates a new GormPendingCreditRepository
func NewGormPendingCreditRepository(db *gorm.DB) *GormPendingCreditRepository {
	return &GormPendingCreditRepository{db: db}
}

// Create inserts an outbox row for an approved overpayment
func (r *GormPendingCreditRepository) Create(ctx context.Context, credit *finance.PendingCredit) error {
	return translateError(r.db.WithContext(ctx).Create(models.PendingCreditModelFromDomain(credit)).Error)
}

// Update stores the row's status and attempt bookkeeping
func (r *GormPendingCreditRepository) Update(ctx context.Context, credit *finance.PendingCredit) error {
	result := r.db.WithContext(ctx).
		Model(&models.PendingCreditModel{}).
		Where("id = ?", credit.ID).
		Updates(map[string]any{
			"status":     credit.Status,
			"attempts":   credit.Attempts,
			"last_error": credit.LastError,
			"applied_at": credit.AppliedAt,
			"updated_at": credit.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByPaymentID returns the outbox row of an overpayment
func (r *GormPendingCreditRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*finance.PendingCredit, error) {
	var model models.PendingCreditModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindUnsettled returns pending and failed rows, oldest first
func (r *GormPendingCreditRepository) FindUnsettled(ctx context.Context, limit int) ([]*finance.PendingCredit, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []finance.PendingCreditStatus{finance.PendingCreditStatusPending, finance.PendingCreditStatusFailed}).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.PendingCreditModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]*finance.PendingCredit, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ finance.InvoiceRepository       = (*GormInvoiceRepository)(nil)
	_ finance.PaymentRepository       = (*GormPaymentRepository)(nil)
	_ finance.PendingCreditRepository = (*GormPendingCreditRepository)(nil)
)
