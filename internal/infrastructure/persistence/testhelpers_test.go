package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupLedgerTestDB opens an in-memory SQLite database with the ledger
// tables. One connection keeps every query on the same memory database.
func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))
	return db
}

// newMockGormDB creates a postgres-dialect GORM handle over sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestClient(t *testing.T, tenantID uuid.UUID) *partner.Client {
	t.Helper()
	client, err := partner.NewClient(tenantID, "C-"+uuid.NewString()[:8], "Acme Ltd")
	require.NoError(t, err)
	return client
}

func newTestInvoice(t *testing.T, tenantID, clientID uuid.UUID, amount string) *finance.Invoice {
	t.Helper()
	due := time.Now().AddDate(0, 0, 30)
	inv, err := finance.NewInvoice(tenantID, "INV-"+uuid.NewString()[:8], clientID, dec(amount), &due)
	require.NoError(t, err)
	require.NoError(t, inv.MarkSent())
	return inv
}
