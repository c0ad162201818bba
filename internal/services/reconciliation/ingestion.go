package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"complybook/internal/models"
	"complybook/internal/money"
	"complybook/internal/services/statement"
)

type ImportResult struct {
	Entries []models.StatementEntry `json:"entries"`
	Skipped int                     `json:"skipped"`
	// Duplicates counts imported entries that were already present in the
	// session. They are stored anyway.
	Duplicates int `json:"duplicates"`
	// OutsidePeriod counts entries dated outside the statement window. They
	// are kept; banks post late.
	OutsidePeriod int `json:"outside_period"`
}

// ImportStatement normalizes rows and stores the survivors as unmatched
// entries of the session, all in one transaction. When no row survives
// nothing is written and ErrNoValidEntries is returned.
func (s *ReconciliationService) ImportStatement(ctx context.Context, sessionID uuid.UUID, rows []statement.Row, performedBy string) (*ImportResult, error) {
	normalized, skipped := statement.Normalize(rows)

	result := &ImportResult{Skipped: skipped}
	err := s.inTx(ctx, func(r scoped) error {
		session, err := r.sessions.LockByID(sessionID)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}
		if len(normalized) == 0 {
			return ErrNoValidEntries
		}

		now := s.now()
		entries := make([]models.StatementEntry, 0, len(normalized))
		fingerprints := make([]string, 0, len(normalized))
		for _, n := range normalized {
			if !session.InPeriod(n.Date) {
				result.OutsidePeriod++
			}
			fp := statement.Fingerprint(sessionID, n)
			fingerprints = append(fingerprints, fp)
			entries = append(entries, models.StatementEntry{
				ID:               uuid.New(),
				ReconciliationID: sessionID,
				Date:             n.Date,
				Description:      n.Description,
				Amount:           money.NewAmount(n.Amount),
				Type:             n.Type,
				IsMatched:        false,
				Fingerprint:      fp,
				CreatedAt:        now,
			})
		}

		existing, err := r.entries.ExistingFingerprints(sessionID, fingerprints)
		if err != nil {
			return err
		}
		for _, fp := range fingerprints {
			if existing[fp] {
				result.Duplicates++
			}
		}

		if err := r.entries.CreateBatch(entries); err != nil {
			return err
		}
		result.Entries = entries

		return s.appendAudit(r, sessionID, auditRecord{
			Action:      models.AuditActionImport,
			PerformedBy: performedBy,
			Details: map[string]interface{}{
				"imported":   len(entries),
				"skipped":    skipped,
				"duplicates": result.Duplicates,
				"outside":    result.OutsidePeriod,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicates > 0 {
		s.logger.Warn("statement import contains entries already in the session",
			"session", sessionID, "duplicates", result.Duplicates)
	}
	if result.OutsidePeriod > 0 {
		s.logger.Warn("statement import has entries outside the statement period",
			"session", sessionID, "count", result.OutsidePeriod)
	}
	s.logger.Info("statement imported", "session", sessionID,
		"entries", len(result.Entries), "skipped", result.Skipped)
	return result, nil
}

func (s *ReconciliationService) ListStatementEntries(ctx context.Context, sessionID uuid.UUID) ([]models.StatementEntry, error) {
	r := s.read(ctx)
	if _, err := r.sessions.GetByID(sessionID); err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return r.entries.ListBySession(sessionID)
}
