package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"complybook/internal/models"
	"complybook/internal/money"
	"complybook/internal/services/statement"
)

// LoadLedger stores externally produced ledger rows for an organization.
// It is the intake boundary for the general ledger export, not a posting
// engine: rows are stored as given, unreconciled.
func (s *ReconciliationService) LoadLedger(ctx context.Context, orgID uuid.UUID, rows []statement.Row) (int, int, error) {
	normalized, skipped := statement.Normalize(rows)
	if len(normalized) == 0 {
		return 0, skipped, ErrNoValidEntries
	}

	now := s.now()
	txs := make([]models.LedgerTransaction, 0, len(normalized))
	for _, n := range normalized {
		txs = append(txs, models.LedgerTransaction{
			ID:                   uuid.New(),
			OrganizationID:       orgID,
			Date:                 n.Date,
			Description:          n.Description,
			Amount:               money.NewAmount(n.Amount),
			Type:                 n.Type,
			ReconciliationStatus: models.LedgerStatusUnreconciled,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}

	err := s.inTx(ctx, func(r scoped) error {
		return r.ledger.CreateBatch(txs)
	})
	if err != nil {
		return 0, skipped, err
	}

	s.logger.Info("ledger transactions loaded", "organization", orgID, "count", len(txs), "skipped", skipped)
	return len(txs), skipped, nil
}

func (s *ReconciliationService) SearchLedger(ctx context.Context, orgID uuid.UUID, query, status string, limit int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.read(ctx).ledger.Search(orgID, query, status, limit)
}
