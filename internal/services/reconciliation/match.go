package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"complybook/internal/models"
	"complybook/internal/services/balance"
	"complybook/internal/services/matching"
)

type Unmatched struct {
	Transactions     []models.LedgerTransaction `json:"transactions"`
	StatementEntries []models.StatementEntry    `json:"statement_entries"`
}

// unmatchedSets is the single definition of "still open" used by listing,
// suggestions and the completion gate.
func unmatchedSets(r scoped, session *models.ReconciliationSession) (*Unmatched, error) {
	txs, err := r.ledger.UnreconciledInPeriod(session.OrganizationID, session.StatementStartDate, session.PeriodEnd())
	if err != nil {
		return nil, err
	}
	paired, err := r.matches.MatchedTransactionIDs(session.ID)
	if err != nil {
		return nil, err
	}
	if len(paired) > 0 {
		skip := make(map[uuid.UUID]bool, len(paired))
		for _, id := range paired {
			skip[id] = true
		}
		open := txs[:0]
		for _, tx := range txs {
			if !skip[tx.ID] {
				open = append(open, tx)
			}
		}
		txs = open
	}

	entries, err := r.entries.Unmatched(session.ID)
	if err != nil {
		return nil, err
	}

	if txs == nil {
		txs = []models.LedgerTransaction{}
	}
	if entries == nil {
		entries = []models.StatementEntry{}
	}
	return &Unmatched{Transactions: txs, StatementEntries: entries}, nil
}

func (s *ReconciliationService) ListUnmatched(ctx context.Context, sessionID uuid.UUID) (*Unmatched, error) {
	r := s.read(ctx)
	session, err := r.sessions.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return unmatchedSets(r, session)
}

// SuggestMatches scores the current unmatched sets. The result can go stale
// as soon as another request matches something; Match re-checks everything.
func (s *ReconciliationService) SuggestMatches(ctx context.Context, sessionID uuid.UUID) ([]matching.Suggestion, error) {
	open, err := s.ListUnmatched(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	suggestions := matching.Suggest(open.Transactions, open.StatementEntries, s.matching)
	s.logger.Debug("match suggestions computed", "session", sessionID,
		"transactions", len(open.Transactions), "entries", len(open.StatementEntries),
		"suggestions", len(suggestions))
	return suggestions, nil
}

// MatchSelection enforces that a manual match names exactly one item on
// each side before delegating to Match.
func (s *ReconciliationService) MatchSelection(ctx context.Context, sessionID uuid.UUID, transactionIDs, entryIDs []uuid.UUID, performedBy string) (*models.ReconciliationMatch, error) {
	if len(transactionIDs) != 1 || len(entryIDs) != 1 {
		return nil, fmt.Errorf("%w: got %d transactions and %d statement entries",
			ErrInvalidSelection, len(transactionIDs), len(entryIDs))
	}
	return s.Match(ctx, sessionID, transactionIDs[0], entryIDs[0], performedBy)
}

func (s *ReconciliationService) Match(ctx context.Context, sessionID, transactionID, entryID uuid.UUID, performedBy string) (*models.ReconciliationMatch, error) {
	return s.createMatch(ctx, sessionID, transactionID, entryID, models.MatchSourceManual, performedBy)
}

// ApplySuggestion records a pairing that came from SuggestMatches.
func (s *ReconciliationService) ApplySuggestion(ctx context.Context, sessionID, transactionID, entryID uuid.UUID, performedBy string) (*models.ReconciliationMatch, error) {
	return s.createMatch(ctx, sessionID, transactionID, entryID, models.MatchSourceSuggestion, performedBy)
}

func (s *ReconciliationService) createMatch(ctx context.Context, sessionID, transactionID, entryID uuid.UUID, source, performedBy string) (*models.ReconciliationMatch, error) {
	var created *models.ReconciliationMatch
	err := s.inTx(ctx, func(r scoped) error {
		session, err := r.sessions.LockByID(sessionID)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}

		tx, err := r.ledger.GetInPeriod(transactionID, session.OrganizationID, session.StatementStartDate, session.PeriodEnd())
		if err != nil {
			return notFound(err, "transaction")
		}
		entry, err := r.entries.GetInSession(entryID, sessionID)
		if err != nil {
			return notFound(err, "statement entry")
		}

		conflict, err := r.matches.FindConflict(sessionID, transactionID, entryID)
		if err != nil {
			return err
		}
		if conflict != nil {
			side := "statement entry"
			if conflict.TransactionID == transactionID {
				side = "transaction"
			}
			return fmt.Errorf("%s %w (match %s)", side, ErrAlreadyMatched, conflict.ID)
		}
		if entry.IsMatched {
			return fmt.Errorf("statement entry %w", ErrAlreadyMatched)
		}

		score := matching.Score(*tx, *entry, s.matching)
		details, err := json.Marshal(score)
		if err != nil {
			return err
		}

		m := &models.ReconciliationMatch{
			ID:                        uuid.New(),
			ReconciliationID:          sessionID,
			TransactionID:             transactionID,
			StatementEntryID:          entryID,
			SimilarityScore:           score.Score,
			Source:                    source,
			PreviousTransactionStatus: tx.ReconciliationStatus,
			MatchDetails:              details,
			CreatedBy:                 actor(performedBy),
			CreatedAt:                 s.now(),
		}
		if err := r.matches.Create(m); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("match %w", ErrAlreadyMatched)
			}
			return err
		}
		if err := r.ledger.SetStatus(transactionID, models.LedgerStatusReconciled); err != nil {
			return err
		}
		if err := r.entries.SetMatched(entryID, true); err != nil {
			return err
		}

		if err := s.appendAudit(r, sessionID, auditRecord{
			Action:           models.AuditActionMatch,
			TransactionID:    &transactionID,
			StatementEntryID: &entryID,
			MatchID:          &m.ID,
			PerformedBy:      performedBy,
			Details: map[string]interface{}{
				"source": source,
				"score":  score.Score,
			},
		}); err != nil {
			return err
		}

		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction matched", "session", sessionID, "transaction", transactionID,
		"entry", entryID, "source", source, "score", created.SimilarityScore)
	return created, nil
}

// Unmatch deletes the match and restores both sides to their state before it.
func (s *ReconciliationService) Unmatch(ctx context.Context, matchID uuid.UUID, performedBy string) error {
	err := s.inTx(ctx, func(r scoped) error {
		m, err := r.matches.GetByID(matchID)
		if err != nil {
			return notFound(err, "match")
		}
		session, err := r.sessions.LockByID(m.ReconciliationID)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}

		if err := r.ledger.SetStatus(m.TransactionID, previousStatus(*m)); err != nil {
			return err
		}
		if err := r.entries.SetMatched(m.StatementEntryID, false); err != nil {
			return err
		}
		if err := r.matches.Delete(m.ID); err != nil {
			return err
		}

		return s.appendAudit(r, session.ID, auditRecord{
			Action:           models.AuditActionUnmatch,
			TransactionID:    &m.TransactionID,
			StatementEntryID: &m.StatementEntryID,
			MatchID:          &m.ID,
			PerformedBy:      performedBy,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("match removed", "match", matchID)
	return nil
}

type ReconcileAllResult struct {
	ReconciledCount int64  `json:"reconciled_count"`
	Difference      string `json:"difference"`
	Balanced        bool   `json:"balanced"`
}

// ReconcileAll marks every ledger transaction of the period reconciled
// without pairing it to a statement entry. It is meant for a zero
// difference; a non-zero difference is reported but not refused.
func (s *ReconciliationService) ReconcileAll(ctx context.Context, sessionID uuid.UUID, performedBy string) (*ReconcileAllResult, error) {
	var result ReconcileAllResult
	err := s.inTx(ctx, func(r scoped) error {
		session, err := r.sessions.LockByID(sessionID)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}

		txs, err := r.ledger.InPeriod(session.OrganizationID, session.StatementStartDate, session.PeriodEnd())
		if err != nil {
			return err
		}
		calc := balance.Calculate(session.BeginningBalance.Decimal, session.EndingBalance.Decimal, txs)

		count, err := r.ledger.ReconcilePeriod(session.OrganizationID, session.StatementStartDate, session.PeriodEnd())
		if err != nil {
			return err
		}

		result = ReconcileAllResult{
			ReconciledCount: count,
			Difference:      calc.Difference.StringFixed(2),
			Balanced:        calc.IsBalanced(),
		}
		return s.appendAudit(r, sessionID, auditRecord{
			Action:      models.AuditActionReconcileAll,
			PerformedBy: performedBy,
			Details: map[string]interface{}{
				"reconciled_count": count,
				"difference":       result.Difference,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Balanced {
		s.logger.Warn("reconcile all with a non-zero difference",
			"session", sessionID, "difference", result.Difference)
	}
	s.logger.Info("reconcile all", "session", sessionID, "count", result.ReconciledCount)
	return &result, nil
}

func (s *ReconciliationService) ListMatches(ctx context.Context, sessionID uuid.UUID) ([]models.ReconciliationMatch, error) {
	r := s.read(ctx)
	if _, err := r.sessions.GetByID(sessionID); err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return r.matches.ListBySession(sessionID)
}
