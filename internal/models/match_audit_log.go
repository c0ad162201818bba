package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionCreate       = "session_created"
	AuditActionImport       = "statement_imported"
	AuditActionMatch        = "matched"
	AuditActionUnmatch      = "unmatched"
	AuditActionReconcileAll = "reconcile_all"
	AuditActionComplete     = "completed"
)

// AuditLogEntry is one link of a per-session hash chain.
type AuditLogEntry struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReconciliationID uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_audit_session_seq" json:"reconciliation_id"`
	Sequence         int64          `gorm:"uniqueIndex:idx_audit_session_seq" json:"sequence"`
	Action           string         `json:"action"`
	TransactionID    *uuid.UUID     `gorm:"type:uuid" json:"transaction_id,omitempty"`
	StatementEntryID *uuid.UUID     `gorm:"type:uuid" json:"statement_entry_id,omitempty"`
	MatchID          *uuid.UUID     `gorm:"type:uuid" json:"match_id,omitempty"`
	PerformedBy      string         `json:"performed_by"`
	Details          datatypes.JSON `gorm:"type:text" json:"details,omitempty"`
	PrevHash         string         `json:"prev_hash"`
	Hash             string         `json:"hash"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (AuditLogEntry) TableName() string {
	return "reconciliation_audit_logs"
}
