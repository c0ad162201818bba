package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"complybook/internal/models"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// Create inserts the match. A unique index violation comes back as
// gorm.ErrDuplicatedKey because the connection translates driver errors.
func (r *MatchRepository) Create(m *models.ReconciliationMatch) error {
	return r.db.Create(m).Error
}

func (r *MatchRepository) GetByID(id uuid.UUID) (*models.ReconciliationMatch, error) {
	var m models.ReconciliationMatch
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepository) ListBySession(sessionID uuid.UUID) ([]models.ReconciliationMatch, error) {
	var matches []models.ReconciliationMatch
	err := r.db.Where("reconciliation_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

func (r *MatchRepository) CountBySession(sessionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&models.ReconciliationMatch{}).
		Where("reconciliation_id = ?", sessionID).
		Count(&n).Error
	return n, err
}

// MatchedTransactionIDs lists the transactions paired in the session.
func (r *MatchRepository) MatchedTransactionIDs(sessionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.ReconciliationMatch{}).
		Where("reconciliation_id = ?", sessionID).
		Pluck("transaction_id", &ids).Error
	return ids, err
}

// FindConflict returns the existing match that already uses either side,
// or nil when both are free.
func (r *MatchRepository) FindConflict(sessionID, transactionID, entryID uuid.UUID) (*models.ReconciliationMatch, error) {
	var m models.ReconciliationMatch
	err := r.db.
		Where("reconciliation_id = ? AND (transaction_id = ? OR statement_entry_id = ?)", sessionID, transactionID, entryID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.ReconciliationMatch{}, "id = ?", id).Error
}

func (r *MatchRepository) DeleteBySession(sessionID uuid.UUID) error {
	return r.db.Where("reconciliation_id = ?", sessionID).Delete(&models.ReconciliationMatch{}).Error
}
