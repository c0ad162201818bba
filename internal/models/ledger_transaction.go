package models

import (
	"time"

	"github.com/google/uuid"

	"complybook/internal/money"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	LedgerStatusReconciled   = "reconciled"
	LedgerStatusUnreconciled = "unreconciled"
)

// LedgerTransaction is owned by the general ledger. Reconciliation only
// reads it and flips ReconciliationStatus.
type LedgerTransaction struct {
	ID                   uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID       uuid.UUID    `gorm:"type:uuid;index:idx_ledger_org_date" json:"organization_id"`
	Date                 time.Time    `gorm:"index:idx_ledger_org_date" json:"date"`
	Description          string       `json:"description"`
	Amount               money.Amount `gorm:"type:numeric(14,2)" json:"amount"`
	Type                 string       `gorm:"index" json:"type"`
	ReconciliationStatus string       `gorm:"index;default:unreconciled" json:"reconciliation_status"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}
