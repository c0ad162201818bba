package reconciliation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"complybook/internal/models"
	"complybook/internal/money"
	"complybook/internal/repository"
	"complybook/internal/services/balance"
	"complybook/internal/services/matching"
	"complybook/internal/services/statement"
)

const defaultActor = "system"

type Repositories struct {
	Sessions *repository.SessionRepository
	Ledger   *repository.LedgerTransactionRepository
	Entries  *repository.StatementEntryRepository
	Matches  *repository.MatchRepository
	Audit    *repository.AuditLogRepository
}

// NewRepositories wires every repository to the same connection.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Sessions: repository.NewSessionRepository(db),
		Ledger:   repository.NewLedgerTransactionRepository(db),
		Entries:  repository.NewStatementEntryRepository(db),
		Matches:  repository.NewMatchRepository(db),
		Audit:    repository.NewAuditLogRepository(db),
	}
}

type ReconciliationService struct {
	db       *gorm.DB
	repos    Repositories
	matching matching.Config
	logger   *log.Logger
	now      func() time.Time
}

func NewReconciliationService(db *gorm.DB, repos Repositories, matchingCfg matching.Config, logger *log.Logger) *ReconciliationService {
	return &ReconciliationService{
		db:       db,
		repos:    repos,
		matching: matchingCfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// scoped is the repository set bound to one context or transaction handle.
type scoped struct {
	sessions *repository.SessionRepository
	ledger   *repository.LedgerTransactionRepository
	entries  *repository.StatementEntryRepository
	matches  *repository.MatchRepository
	audit    *repository.AuditLogRepository
}

func (s *ReconciliationService) bind(db *gorm.DB) scoped {
	return scoped{
		sessions: s.repos.Sessions.WithTx(db),
		ledger:   s.repos.Ledger.WithTx(db),
		entries:  s.repos.Entries.WithTx(db),
		matches:  s.repos.Matches.WithTx(db),
		audit:    s.repos.Audit.WithTx(db),
	}
}

func (s *ReconciliationService) read(ctx context.Context) scoped {
	return s.bind(s.db.WithContext(ctx))
}

// inTx runs fn in one transaction. PostgreSQL gets SERIALIZABLE isolation;
// SQLite transactions are serializable already.
func (s *ReconciliationService) inTx(ctx context.Context, fn func(r scoped) error) error {
	db := s.db.WithContext(ctx)
	run := func(tx *gorm.DB) error { return fn(s.bind(tx)) }
	if db.Dialector.Name() == "postgres" {
		return db.Transaction(run, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return db.Transaction(run)
}

func actor(performedBy string) string {
	if p := strings.TrimSpace(performedBy); p != "" {
		return p
	}
	return defaultActor
}

// CreateSessionInput carries the form values as entered; numeric fields are
// strings so they can be validated here rather than by the transport.
type CreateSessionInput struct {
	OrganizationID   string `json:"organization_id"`
	AccountName      string `json:"account_name"`
	StartDate        string `json:"statement_start_date"`
	EndDate          string `json:"statement_end_date"`
	BeginningBalance string `json:"beginning_balance"`
	EndingBalance    string `json:"ending_balance"`
	StatementBalance string `json:"statement_balance"`
	CreatedBy        string `json:"-"`
}

func (in CreateSessionInput) toSession() (*models.ReconciliationSession, error) {
	orgID, err := uuid.Parse(strings.TrimSpace(in.OrganizationID))
	if err != nil {
		return nil, invalid("organization_id", "must be a valid id")
	}
	account := strings.TrimSpace(in.AccountName)
	if account == "" {
		return nil, invalid("account_name", "is required")
	}

	start, err := requiredDate("statement_start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := requiredDate("statement_end_date", in.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, invalid("statement_end_date", "must not be before the start date")
	}

	beginning, err := requiredAmount("beginning_balance", in.BeginningBalance)
	if err != nil {
		return nil, err
	}
	ending, err := requiredAmount("ending_balance", in.EndingBalance)
	if err != nil {
		return nil, err
	}
	// statement_balance is the legacy mirror of the ending balance; a blank
	// value is filled from ending_balance instead of rejected.
	statementBalance := ending
	if strings.TrimSpace(in.StatementBalance) != "" {
		if statementBalance, err = requiredAmount("statement_balance", in.StatementBalance); err != nil {
			return nil, err
		}
	}

	return &models.ReconciliationSession{
		ID:                 uuid.New(),
		OrganizationID:     orgID,
		AccountName:        account,
		StatementStartDate: start,
		StatementEndDate:   end,
		BeginningBalance:   money.NewAmount(beginning),
		EndingBalance:      money.NewAmount(ending),
		StatementBalance:   money.NewAmount(statementBalance),
		BookBalance:        money.NewAmount(beginning),
		Difference:         money.NewAmount(balance.OpeningDifference(statementBalance, beginning)),
		Status:             models.SessionStatusUnreconciled,
		CreatedBy:          actor(in.CreatedBy),
	}, nil
}

func requiredDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, invalid(field, "is required")
	}
	d, err := statement.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid(field, "is not a valid date")
	}
	return d, nil
}

func requiredAmount(field, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, invalid(field, "is required")
	}
	d, err := money.Parse(value)
	if err != nil {
		return decimal.Zero, invalid(field, "must be a number with at most 2 decimal places")
	}
	return d, nil
}

// CreateSession opens a new reconciliation for one account and period.
func (s *ReconciliationService) CreateSession(ctx context.Context, in CreateSessionInput) (*models.ReconciliationSession, error) {
	session, err := in.toSession()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session.CreatedAt = now
	session.UpdatedAt = now

	err = s.inTx(ctx, func(r scoped) error {
		if err := r.sessions.Create(session); err != nil {
			return err
		}
		return s.appendAudit(r, session.ID, auditRecord{
			Action:      models.AuditActionCreate,
			PerformedBy: session.CreatedBy,
			Details: map[string]interface{}{
				"account_name":      session.AccountName,
				"beginning_balance": money.Format(session.BeginningBalance.Decimal),
				"ending_balance":    money.Format(session.EndingBalance.Decimal),
				"statement_balance": money.Format(session.StatementBalance.Decimal),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reconciliation session created",
		"session", session.ID, "account", session.AccountName,
		"start", session.StatementStartDate.Format("2006-01-02"),
		"end", session.StatementEndDate.Format("2006-01-02"))
	return session, nil
}

func (s *ReconciliationService) GetSession(ctx context.Context, id uuid.UUID) (*models.ReconciliationSession, error) {
	session, err := s.read(ctx).sessions.GetByID(id)
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return session, nil
}

// ListSessions returns the organization's reconciliation history, newest first.
func (s *ReconciliationService) ListSessions(ctx context.Context, orgID uuid.UUID, limit int) ([]models.ReconciliationSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.read(ctx).sessions.List(orgID, limit)
}

// Resume loads the most recent session for the organization (and account,
// when given) without changing it.
func (s *ReconciliationService) Resume(ctx context.Context, orgID uuid.UUID, accountName string) (*models.ReconciliationSession, error) {
	session, err := s.read(ctx).sessions.Latest(orgID, strings.TrimSpace(accountName))
	if err != nil {
		return nil, notFound(err, "reconciliation session")
	}
	return session, nil
}

// Complete closes the session once nothing is left unmatched on either side.
func (s *ReconciliationService) Complete(ctx context.Context, id uuid.UUID, performedBy string) (*models.ReconciliationSession, error) {
	var completed *models.ReconciliationSession
	err := s.inTx(ctx, func(r scoped) error {
		session, err := r.sessions.LockByID(id)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}

		open, err := unmatchedSets(r, session)
		if err != nil {
			return err
		}
		if len(open.Transactions) > 0 || len(open.StatementEntries) > 0 {
			return fmt.Errorf("%w: %d transactions and %d statement entries unmatched",
				ErrIncompleteReconciliation, len(open.Transactions), len(open.StatementEntries))
		}

		now := s.now()
		if err := r.sessions.MarkCompleted(id, now); err != nil {
			return err
		}
		if err := s.appendAudit(r, id, auditRecord{
			Action:      models.AuditActionComplete,
			PerformedBy: actor(performedBy),
		}); err != nil {
			return err
		}

		completed, err = r.sessions.GetByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reconciliation completed", "session", id)
	return completed, nil
}

// DeleteSession removes an open session with its statement entries, matches
// and audit trail. Matched transactions get their previous status back.
func (s *ReconciliationService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(r scoped) error {
		session, err := r.sessions.LockByID(id)
		if err != nil {
			return notFound(err, "reconciliation session")
		}
		if session.IsTerminal() {
			return ErrSessionClosed
		}

		matches, err := r.matches.ListBySession(id)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := r.ledger.SetStatus(m.TransactionID, previousStatus(m)); err != nil {
				return err
			}
		}

		if err := r.matches.DeleteBySession(id); err != nil {
			return err
		}
		if err := r.entries.DeleteBySession(id); err != nil {
			return err
		}
		if err := r.audit.DeleteBySession(id); err != nil {
			return err
		}
		return r.sessions.Delete(id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("reconciliation session deleted", "session", id)
	return nil
}

func previousStatus(m models.ReconciliationMatch) string {
	if m.PreviousTransactionStatus == "" {
		return models.LedgerStatusUnreconciled
	}
	return m.PreviousTransactionStatus
}
