package reconciliation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"complybook/internal/models"
)

type auditRecord struct {
	Action           string
	TransactionID    *uuid.UUID
	StatementEntryID *uuid.UUID
	MatchID          *uuid.UUID
	PerformedBy      string
	Details          map[string]interface{}
}

// appendAudit links a new entry to the end of the session's chain. It must
// run inside the transaction that performs the audited change, after the
// session row has been locked.
func (s *ReconciliationService) appendAudit(r scoped, sessionID uuid.UUID, rec auditRecord) error {
	last, err := r.audit.Last(sessionID)
	if err != nil {
		return err
	}

	entry := &models.AuditLogEntry{
		ID:               uuid.New(),
		ReconciliationID: sessionID,
		Sequence:         1,
		Action:           rec.Action,
		TransactionID:    rec.TransactionID,
		StatementEntryID: rec.StatementEntryID,
		MatchID:          rec.MatchID,
		PerformedBy:      actor(rec.PerformedBy),
		CreatedAt:        s.now().Truncate(time.Microsecond),
	}
	if last != nil {
		entry.Sequence = last.Sequence + 1
		entry.PrevHash = last.Hash
	}
	if rec.Details != nil {
		details, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		entry.Details = details
	}
	entry.Hash = chainHash(entry)

	if err := r.audit.Create(entry); err != nil {
		return err
	}
	return r.sessions.SetAuditHead(sessionID, entry.Sequence, entry.Hash)
}

func chainHash(e *models.AuditLogEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s|%s|%s|%s",
		e.PrevHash,
		e.Sequence,
		e.ReconciliationID,
		e.Action,
		optionalID(e.TransactionID),
		optionalID(e.StatementEntryID),
		optionalID(e.MatchID),
		e.PerformedBy,
		string(e.Details),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return hex.EncodeToString(h.Sum(nil))
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func (s *ReconciliationService) AuditTrail(ctx context.Context, sessionID uuid.UUID) ([]models.AuditLogEntry, error) {
	r := s.read(ctx)
	if _, err := r.sessions.GetByID(sessionID); err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return r.audit.ListBySession(sessionID)
}

// AuditVerification reports the outcome of a chain check. BrokenAt is the
// first sequence whose link does not verify.
type AuditVerification struct {
	Valid    bool  `json:"valid"`
	Entries  int   `json:"entries"`
	BrokenAt int64 `json:"broken_at,omitempty"`
}

// VerifyAuditTrail recomputes every hash of the session's chain and checks
// that it ends at the head recorded on the session. A broken chain yields
// both the report and an error wrapping ErrAuditTampered.
func (s *ReconciliationService) VerifyAuditTrail(ctx context.Context, sessionID uuid.UUID) (*AuditVerification, error) {
	r := s.read(ctx)
	session, err := r.sessions.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	entries, err := r.audit.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &AuditVerification{Valid: true, Entries: len(entries)}
	prev := ""
	for i := range entries {
		e := &entries[i]
		if e.Sequence != int64(i+1) || e.PrevHash != prev || chainHash(e) != e.Hash {
			return s.tampered(result, sessionID, e.Sequence)
		}
		prev = e.Hash
	}

	// the chain itself is intact; rows cut from its end only show against the head
	count := int64(len(entries))
	if session.AuditHeadSequence != count || session.AuditHeadHash != prev {
		broken := count + 1
		if session.AuditHeadSequence < broken {
			broken = session.AuditHeadSequence
		}
		if broken < 1 {
			broken = 1
		}
		return s.tampered(result, sessionID, broken)
	}
	return result, nil
}

func (s *ReconciliationService) tampered(result *AuditVerification, sessionID uuid.UUID, sequence int64) (*AuditVerification, error) {
	result.Valid = false
	result.BrokenAt = sequence
	s.logger.Warn("audit trail verification failed", "session", sessionID, "sequence", sequence)
	return result, fmt.Errorf("%w at sequence %d", ErrAuditTampered, sequence)
}
