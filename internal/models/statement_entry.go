package models

import (
	"time"

	"github.com/google/uuid"

	"complybook/internal/money"
)

type StatementEntry struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReconciliationID uuid.UUID    `gorm:"type:uuid;index" json:"reconciliation_id"`
	Date             time.Time    `json:"date"`
	Description      string       `json:"description"`
	Amount           money.Amount `gorm:"type:numeric(14,2)" json:"amount"`
	Type             string       `json:"type"`
	IsMatched        bool         `gorm:"index;default:false" json:"is_matched"`
	Fingerprint      string       `gorm:"index" json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
}
