package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MatchSourceManual     = "manual"
	MatchSourceSuggestion = "suggestion"
)

// ReconciliationMatch pairs one ledger transaction with one statement entry.
// The two composite unique indexes keep the pairing one-to-one per session.
type ReconciliationMatch struct {
	ID                        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReconciliationID          uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_match_session_tx;uniqueIndex:idx_match_session_entry" json:"reconciliation_id"`
	TransactionID             uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_match_session_tx" json:"transaction_id"`
	StatementEntryID          uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_match_session_entry" json:"statement_entry_id"`
	SimilarityScore           float64        `json:"similarity_score"`
	Source                    string         `json:"source"`
	PreviousTransactionStatus string         `json:"-"`
	MatchDetails              datatypes.JSON `json:"match_details,omitempty"`
	CreatedBy                 string         `json:"created_by"`
	CreatedAt                 time.Time      `json:"created_at"`
}
