package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"complybook/internal/models"
)

type StatementEntryRepository struct {
	db *gorm.DB
}

func NewStatementEntryRepository(db *gorm.DB) *StatementEntryRepository {
	return &StatementEntryRepository{db: db}
}

func (r *StatementEntryRepository) WithTx(tx *gorm.DB) *StatementEntryRepository {
	return &StatementEntryRepository{db: tx}
}

func (r *StatementEntryRepository) CreateBatch(entries []models.StatementEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.CreateInBatches(entries, 200).Error
}

func (r *StatementEntryRepository) ListBySession(sessionID uuid.UUID) ([]models.StatementEntry, error) {
	var entries []models.StatementEntry
	err := r.db.Where("reconciliation_id = ?", sessionID).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *StatementEntryRepository) Unmatched(sessionID uuid.UUID) ([]models.StatementEntry, error) {
	var entries []models.StatementEntry
	err := r.db.Where("reconciliation_id = ? AND is_matched = ?", sessionID, false).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// GetInSession fails with gorm.ErrRecordNotFound when the entry belongs to
// another session.
func (r *StatementEntryRepository) GetInSession(id, sessionID uuid.UUID) (*models.StatementEntry, error) {
	var e models.StatementEntry
	if err := r.db.First(&e, "id = ? AND reconciliation_id = ?", id, sessionID).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *StatementEntryRepository) SetMatched(id uuid.UUID, matched bool) error {
	return r.db.Model(&models.StatementEntry{}).
		Where("id = ?", id).
		Update("is_matched", matched).
		Error
}

// ExistingFingerprints returns the subset of fingerprints already stored
// for the session.
func (r *StatementEntryRepository) ExistingFingerprints(sessionID uuid.UUID, fingerprints []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(fingerprints) == 0 {
		return out, nil
	}
	var found []string
	err := r.db.Model(&models.StatementEntry{}).
		Where("reconciliation_id = ? AND fingerprint IN ?", sessionID, fingerprints).
		Distinct().
		Pluck("fingerprint", &found).Error
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		out[f] = true
	}
	return out, nil
}

func (r *StatementEntryRepository) DeleteBySession(sessionID uuid.UUID) error {
	return r.db.Where("reconciliation_id = ?", sessionID).Delete(&models.StatementEntry{}).Error
}
