package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"complybook/internal/models"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) WithTx(tx *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: tx}
}

// Last returns the newest entry of the session's chain, or nil for an empty chain.
func (r *AuditLogRepository) Last(sessionID uuid.UUID) (*models.AuditLogEntry, error) {
	var e models.AuditLogEntry
	err := r.db.Where("reconciliation_id = ?", sessionID).
		Order("sequence DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *AuditLogRepository) Create(e *models.AuditLogEntry) error {
	return r.db.Create(e).Error
}

func (r *AuditLogRepository) ListBySession(sessionID uuid.UUID) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.Where("reconciliation_id = ?", sessionID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

func (r *AuditLogRepository) DeleteBySession(sessionID uuid.UUID) error {
	return r.db.Where("reconciliation_id = ?", sessionID).Delete(&models.AuditLogEntry{}).Error
}
