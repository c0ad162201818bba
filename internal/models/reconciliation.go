package models

import (
	"time"

	"github.com/google/uuid"

	"complybook/internal/money"
)

const (
	SessionStatusUnreconciled = "unreconciled"
	// SessionStatusReconciled is accepted when reading older rows but never
	// written; it means the same thing as completed.
	SessionStatusReconciled = "reconciled"
	SessionStatusCompleted  = "completed"
)

type ReconciliationSession struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID     uuid.UUID    `gorm:"type:uuid;index:idx_session_org_created" json:"organization_id"`
	AccountName        string       `gorm:"not null" json:"account_name"`
	StatementStartDate time.Time    `json:"statement_start_date"`
	StatementEndDate   time.Time    `json:"statement_end_date"`
	BeginningBalance   money.Amount `gorm:"type:numeric(14,2)" json:"beginning_balance"`
	EndingBalance      money.Amount `gorm:"type:numeric(14,2)" json:"ending_balance"`
	StatementBalance   money.Amount `gorm:"type:numeric(14,2)" json:"statement_balance"`
	BookBalance        money.Amount `gorm:"type:numeric(14,2)" json:"book_balance"`
	Difference         money.Amount `gorm:"type:numeric(14,2)" json:"difference"`
	Status             string       `gorm:"index" json:"status"`
	CompletedDate      *time.Time   `json:"completed_date"`
	CreatedBy          string       `json:"created_by"`
	// AuditHeadSequence and AuditHeadHash mirror the newest audit entry so
	// truncating the chain is detectable.
	AuditHeadSequence int64     `json:"-"`
	AuditHeadHash     string    `json:"-"`
	CreatedAt         time.Time `gorm:"index:idx_session_org_created" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsTerminal reports whether the session no longer accepts changes.
func (s *ReconciliationSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusReconciled
}

// PeriodEnd is the exclusive upper bound of the statement window.
func (s *ReconciliationSession) PeriodEnd() time.Time {
	return s.StatementEndDate.AddDate(0, 0, 1)
}

// InPeriod reports whether d falls on a day inside the statement window.
func (s *ReconciliationSession) InPeriod(d time.Time) bool {
	return !d.Before(s.StatementStartDate) && d.Before(s.PeriodEnd())
}
