package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"complybook/internal/models"
)

// LedgerTransactionRepository reads the external ledger. The only write the
// reconciliation flow performs is the reconciliation status flag; Create
// exists for the fixture loader.
type LedgerTransactionRepository struct {
	db *gorm.DB
}

func NewLedgerTransactionRepository(db *gorm.DB) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{db: db}
}

// WithTx binds the repository to a transaction or a context-scoped handle.
func (r *LedgerTransactionRepository) WithTx(tx *gorm.DB) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{db: tx}
}

func (r *LedgerTransactionRepository) periodScope(orgID uuid.UUID, start, endExclusive time.Time) *gorm.DB {
	return r.db.Model(&models.LedgerTransaction{}).
		Where("organization_id = ? AND date >= ? AND date < ?", orgID, start, endExclusive)
}

// InPeriod returns every transaction of the organization dated in
// [start, endExclusive), oldest first.
func (r *LedgerTransactionRepository) InPeriod(orgID uuid.UUID, start, endExclusive time.Time) ([]models.LedgerTransaction, error) {
	var txs []models.LedgerTransaction
	err := r.periodScope(orgID, start, endExclusive).
		Order("date ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// UnreconciledInPeriod is InPeriod limited to rows still open.
func (r *LedgerTransactionRepository) UnreconciledInPeriod(orgID uuid.UUID, start, endExclusive time.Time) ([]models.LedgerTransaction, error) {
	var txs []models.LedgerTransaction
	err := r.periodScope(orgID, start, endExclusive).
		Where("reconciliation_status = ?", models.LedgerStatusUnreconciled).
		Order("date ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// GetInPeriod fetches one transaction, failing with gorm.ErrRecordNotFound
// when it does not exist or lies outside the organization's period.
func (r *LedgerTransactionRepository) GetInPeriod(id, orgID uuid.UUID, start, endExclusive time.Time) (*models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	err := r.periodScope(orgID, start, endExclusive).
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *LedgerTransactionRepository) GetByIDs(ids []uuid.UUID) (map[uuid.UUID]models.LedgerTransaction, error) {
	out := make(map[uuid.UUID]models.LedgerTransaction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var txs []models.LedgerTransaction
	if err := r.db.Where("id IN ?", ids).Find(&txs).Error; err != nil {
		return nil, err
	}
	for _, tx := range txs {
		out[tx.ID] = tx
	}
	return out, nil
}

func (r *LedgerTransactionRepository) SetStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.LedgerTransaction{}).
		Where("id = ?", id).
		Update("reconciliation_status", status).
		Error
}

// ReconcilePeriod flags every transaction in the period as reconciled in a
// single statement and returns how many rows it touched.
func (r *LedgerTransactionRepository) ReconcilePeriod(orgID uuid.UUID, start, endExclusive time.Time) (int64, error) {
	result := r.periodScope(orgID, start, endExclusive).
		Updates(map[string]interface{}{
			"reconciliation_status": models.LedgerStatusReconciled,
			"updated_at":            time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *LedgerTransactionRepository) CreateBatch(txs []models.LedgerTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.CreateInBatches(txs, 200).Error
}

// Search is the admin lookup used to find candidates for a manual match.
func (r *LedgerTransactionRepository) Search(orgID uuid.UUID, query, status string, limit int) ([]models.LedgerTransaction, error) {
	var txs []models.LedgerTransaction

	dbQuery := r.db.Model(&models.LedgerTransaction{}).Where("organization_id = ?", orgID)
	if query != "" {
		dbQuery = dbQuery.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if status != "" {
		dbQuery = dbQuery.Where("reconciliation_status = ?", status)
	}

	err := dbQuery.Order("date DESC").Limit(limit).Find(&txs).Error
	return txs, err
}
