package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"complybook/internal/models"
	"complybook/internal/money"
	"complybook/internal/services/balance"
)

// Summary is the balance view of a session, recomputed from the ledger on
// every call.
type Summary struct {
	SessionID              uuid.UUID    `json:"session_id"`
	Status                 string       `json:"status"`
	BeginningBalance       money.Amount `json:"beginning_balance"`
	CalculatedBookBalance  money.Amount `json:"calculated_book_balance"`
	StatementEndingBalance money.Amount `json:"statement_ending_balance"`
	Difference             money.Amount `json:"difference"`
	PeriodIncome           money.Amount `json:"period_income"`
	PeriodExpenses         money.Amount `json:"period_expenses"`
	MatchedCount           int64        `json:"matched_count"`
	UnmatchedCount         int          `json:"unmatched_count"`
}

type ResolvedMatch struct {
	Match          models.ReconciliationMatch `json:"match"`
	Transaction    models.LedgerTransaction   `json:"transaction"`
	StatementEntry models.StatementEntry      `json:"statement_entry"`
}

// Report is everything an external renderer needs to lay out a
// reconciliation document.
type Report struct {
	Session                   models.ReconciliationSession `json:"session"`
	Summary                   Summary                      `json:"summary"`
	Matches                   []ResolvedMatch              `json:"matches"`
	UnmatchedTransactionCount int                          `json:"unmatched_transaction_count"`
	UnmatchedTransactionTotal money.Amount                 `json:"unmatched_transaction_total"`
	UnmatchedEntryCount       int                          `json:"unmatched_entry_count"`
	UnmatchedEntryTotal       money.Amount                 `json:"unmatched_entry_total"`
}

func (s *ReconciliationService) GetSummary(ctx context.Context, sessionID uuid.UUID) (*Summary, error) {
	r := s.read(ctx)
	session, err := r.sessions.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	summary, _, err := buildSummary(r, session)
	return summary, err
}

func buildSummary(r scoped, session *models.ReconciliationSession) (*Summary, *Unmatched, error) {
	txs, err := r.ledger.InPeriod(session.OrganizationID, session.StatementStartDate, session.PeriodEnd())
	if err != nil {
		return nil, nil, err
	}
	calc := balance.Calculate(session.BeginningBalance.Decimal, session.EndingBalance.Decimal, txs)

	open, err := unmatchedSets(r, session)
	if err != nil {
		return nil, nil, err
	}
	matched, err := r.matches.CountBySession(session.ID)
	if err != nil {
		return nil, nil, err
	}

	return &Summary{
		SessionID:              session.ID,
		Status:                 session.Status,
		BeginningBalance:       money.NewAmount(calc.BeginningBalance),
		CalculatedBookBalance:  money.NewAmount(calc.CalculatedBookBalance),
		StatementEndingBalance: money.NewAmount(calc.EndingBalance),
		Difference:             money.NewAmount(calc.Difference),
		PeriodIncome:           money.NewAmount(calc.PeriodIncome),
		PeriodExpenses:         money.NewAmount(calc.PeriodExpenses),
		MatchedCount:           matched,
		UnmatchedCount:         len(open.Transactions) + len(open.StatementEntries),
	}, open, nil
}

func (s *ReconciliationService) GetReport(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	r := s.read(ctx)
	session, err := r.sessions.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}

	summary, open, err := buildSummary(r, session)
	if err != nil {
		return nil, err
	}

	matches, err := r.matches.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	txIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		txIDs = append(txIDs, m.TransactionID)
	}
	txs, err := r.ledger.GetByIDs(txIDs)
	if err != nil {
		return nil, err
	}
	entries, err := r.entries.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	entryByID := make(map[uuid.UUID]models.StatementEntry, len(entries))
	for _, e := range entries {
		entryByID[e.ID] = e
	}

	resolved := make([]ResolvedMatch, 0, len(matches))
	for _, m := range matches {
		resolved = append(resolved, ResolvedMatch{
			Match:          m,
			Transaction:    txs[m.TransactionID],
			StatementEntry: entryByID[m.StatementEntryID],
		})
	}

	txTotal := make([]decimal.Decimal, 0, len(open.Transactions))
	for _, tx := range open.Transactions {
		txTotal = append(txTotal, tx.Amount.Abs())
	}
	entryTotal := make([]decimal.Decimal, 0, len(open.StatementEntries))
	for _, e := range open.StatementEntries {
		entryTotal = append(entryTotal, e.Amount.Abs())
	}

	return &Report{
		Session:                   *session,
		Summary:                   *summary,
		Matches:                   resolved,
		UnmatchedTransactionCount: len(open.Transactions),
		UnmatchedTransactionTotal: money.NewAmount(money.Sum(txTotal...)),
		UnmatchedEntryCount:       len(open.StatementEntries),
		UnmatchedEntryTotal:       money.NewAmount(money.Sum(entryTotal...)),
	}, nil
}
