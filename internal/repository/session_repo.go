package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"complybook/internal/models"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(s *models.ReconciliationSession) error {
	return r.db.Create(s).Error
}

func (r *SessionRepository) GetByID(id uuid.UUID) (*models.ReconciliationSession, error) {
	var s models.ReconciliationSession
	if err := r.db.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LockByID loads the session with a row lock so concurrent writers on the
// same session queue behind each other. SQLite has no row locks; there the
// single connection already serializes writers.
func (r *SessionRepository) LockByID(id uuid.UUID) (*models.ReconciliationSession, error) {
	q := r.db
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var s models.ReconciliationSession
	if err := q.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Latest returns the most recently created session of the organization,
// optionally narrowed to one account.
func (r *SessionRepository) Latest(orgID uuid.UUID, accountName string) (*models.ReconciliationSession, error) {
	q := r.db.Where("organization_id = ?", orgID)
	if accountName != "" {
		q = q.Where("account_name = ?", accountName)
	}
	var s models.ReconciliationSession
	if err := q.Order("created_at DESC").First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) List(orgID uuid.UUID, limit int) ([]models.ReconciliationSession, error) {
	var sessions []models.ReconciliationSession
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) MarkCompleted(id uuid.UUID, at time.Time) error {
	return r.db.Model(&models.ReconciliationSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.SessionStatusCompleted,
			"completed_date": at,
		}).Error
}

// SetAuditHead records the newest link of the session's audit chain.
func (r *SessionRepository) SetAuditHead(id uuid.UUID, sequence int64, hash string) error {
	return r.db.Model(&models.ReconciliationSession{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"audit_head_sequence": sequence,
			"audit_head_hash":     hash,
		}).Error
}

func (r *SessionRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.ReconciliationSession{}, "id = ?", id).Error
}
