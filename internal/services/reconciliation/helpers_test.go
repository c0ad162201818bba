package reconciliation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"complybook/internal/logging"
	"complybook/internal/models"
	"complybook/internal/money"
	"complybook/internal/services/matching"
)

type fixture struct {
	svc   *ReconciliationService
	db    *gorm.DB
	org   uuid.UUID
	ctx   context.Context
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	f := &fixture{
		db:    db,
		org:   uuid.New(),
		ctx:   context.Background(),
		clock: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewReconciliationService(db, NewRepositories(db), matching.DefaultConfig(), logging.Discard())
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func jan(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) session(t *testing.T, beginning, ending string) *models.ReconciliationSession {
	t.Helper()
	s, err := f.svc.CreateSession(f.ctx, CreateSessionInput{
		OrganizationID:   f.org.String(),
		AccountName:      "Operating Checking",
		StartDate:        "2025-01-01",
		EndDate:          "2025-01-31",
		BeginningBalance: beginning,
		EndingBalance:    ending,
		CreatedBy:        "tester",
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) ledger(t *testing.T, desc, typ, amount string, date time.Time) models.LedgerTransaction {
	t.Helper()
	tx := models.LedgerTransaction{
		ID:                   uuid.New(),
		OrganizationID:       f.org,
		Date:                 date,
		Description:          desc,
		Amount:               money.NewAmount(decimal.RequireFromString(amount)),
		Type:                 typ,
		ReconciliationStatus: models.LedgerStatusUnreconciled,
	}
	require.NoError(t, f.db.Create(&tx).Error)
	return tx
}

func (f *fixture) reloadTx(t *testing.T, id uuid.UUID) models.LedgerTransaction {
	t.Helper()
	var tx models.LedgerTransaction
	require.NoError(t, f.db.First(&tx, "id = ?", id).Error)
	return tx
}

func (f *fixture) reloadEntry(t *testing.T, id uuid.UUID) models.StatementEntry {
	t.Helper()
	var e models.StatementEntry
	require.NoError(t, f.db.First(&e, "id = ?", id).Error)
	return e
}

func transactionIDs(txs []models.LedgerTransaction) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	return ids
}

func entryIDs(entries []models.StatementEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
