package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"complybook/internal/logging"
	"complybook/internal/models"
	"complybook/internal/services/matching"
	service "complybook/internal/services/reconciliation"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	logger := logging.Discard()
	svc := service.NewReconciliationService(db, service.NewRepositories(db), matching.DefaultConfig(), logger)

	r := gin.New()
	RegisterRoutes(r, svc, logger, Options{RequestTimeout: 5 * time.Second})
	return &apiClient{t: t, router: r}
}

func (a *apiClient) do(req *http.Request, out interface{}) int {
	a.t.Helper()
	req.Header.Set("X-Performed-By", "jane@example.org")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func (a *apiClient) json(method, path string, body interface{}, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *apiClient) upload(path, filename, content string, fields map[string]string, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, out)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, api.json(http.MethodGet, "/api/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReconciliationFlow(t *testing.T) {
	api := newAPI(t)
	org := uuid.NewString()

	var loaded map[string]interface{}
	code := api.upload("/api/ledger/upload", "ledger.csv",
		"date,description,amount\n2025-01-05,Smith Foundation grant,500.00\n2025-01-09,Office Depot supplies,-150.00\n",
		map[string]string{"organization_id": org}, &loaded)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, loaded["transactionsAdded"])

	var created struct {
		Reconciliation models.ReconciliationSession `json:"reconciliation"`
	}
	code = api.json(http.MethodPost, "/api/reconciliations", map[string]interface{}{
		"organization_id":      org,
		"account_name":         "Operating Checking",
		"statement_start_date": "2025-01-01",
		"statement_end_date":   "2025-01-31",
		"beginning_balance":    1000,
		"ending_balance":       "1350.00",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	session := created.Reconciliation
	assert.Equal(t, "jane@example.org", session.CreatedBy)
	assert.Equal(t, "1000.00", session.BookBalance.StringFixed(2))
	base := "/api/reconciliations/" + session.ID.String()

	var imported struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	code = api.upload(base+"/statement", "january.csv",
		"Date,Description,Amount\n2025-01-06,SMITH FOUNDATION GRANT,500.00\n2025-01-10,OFFICE DEPOT #442,-150.00\n,,\n",
		nil, &imported)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 2, imported.Imported)

	var open service.Unmatched
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/unmatched", nil, &open))
	require.Len(t, open.Transactions, 2)
	require.Len(t, open.StatementEntries, 2)

	var suggestions struct {
		Items []matching.Suggestion `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/suggestions", nil, &suggestions))
	require.Len(t, suggestions.Items, 2)

	var errBody errorBody
	code = api.json(http.MethodPost, base+"/matches", map[string]interface{}{
		"transaction_ids":     []string{open.Transactions[0].ID.String(), open.Transactions[1].ID.String()},
		"statement_entry_ids": []string{open.StatementEntries[0].ID.String()},
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_selection", errBody.Code)

	first := suggestions.Items[0]
	var matched struct {
		Match models.ReconciliationMatch `json:"match"`
	}
	code = api.json(http.MethodPost, base+"/suggestions/apply", map[string]string{
		"transaction_id":     first.Transaction.ID.String(),
		"statement_entry_id": first.StatementEntry.ID.String(),
	}, &matched)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.MatchSourceSuggestion, matched.Match.Source)

	code = api.json(http.MethodPost, base+"/matches", map[string]interface{}{
		"transaction_ids":     []string{first.Transaction.ID.String()},
		"statement_entry_ids": []string{suggestions.Items[1].StatementEntry.ID.String()},
	}, &errBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_matched", errBody.Code)

	code = api.json(http.MethodPost, base+"/complete", nil, &errBody)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "incomplete_reconciliation", errBody.Code)

	second := suggestions.Items[1]
	code = api.json(http.MethodPost, base+"/matches", map[string]interface{}{
		"transaction_ids":     []string{second.Transaction.ID.String()},
		"statement_entry_ids": []string{second.StatementEntry.ID.String()},
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	var summary service.Summary
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/summary", nil, &summary))
	assert.True(t, summary.Difference.IsZero())
	assert.Equal(t, 0, summary.UnmatchedCount)
	assert.Equal(t, int64(2), summary.MatchedCount)

	var completed struct {
		Reconciliation models.ReconciliationSession `json:"reconciliation"`
	}
	require.Equal(t, http.StatusOK, api.json(http.MethodPost, base+"/complete", nil, &completed))
	assert.Equal(t, models.SessionStatusCompleted, completed.Reconciliation.Status)
	assert.NotNil(t, completed.Reconciliation.CompletedDate)

	code = api.json(http.MethodDelete, "/api/matches/"+matched.Match.ID.String(), nil, &errBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "session_closed", errBody.Code)

	var verification service.AuditVerification
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/audit/verify", nil, &verification))
	assert.True(t, verification.Valid)
	assert.Equal(t, 5, verification.Entries)

	var report service.Report
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/report", nil, &report))
	assert.Len(t, report.Matches, 2)
	assert.Equal(t, models.SessionStatusCompleted, report.Session.Status)

	var latest struct {
		Reconciliation models.ReconciliationSession `json:"reconciliation"`
	}
	code = api.json(http.MethodGet,
		"/api/reconciliations/latest?organization_id="+org+"&account_name=Operating%20Checking", nil, &latest)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.ID, latest.Reconciliation.ID)
}

func TestUnmatchOverHTTP(t *testing.T) {
	api := newAPI(t)
	org := uuid.NewString()

	require.Equal(t, http.StatusOK, api.upload("/api/ledger/upload", "ledger.csv",
		"2025-01-05,Dues,75.00\n", map[string]string{"organization_id": org}, nil))

	var created struct {
		Reconciliation models.ReconciliationSession `json:"reconciliation"`
	}
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/reconciliations", map[string]interface{}{
		"organization_id":      org,
		"account_name":         "Savings",
		"statement_start_date": "2025-01-01",
		"statement_end_date":   "2025-01-31",
		"beginning_balance":    "0",
		"ending_balance":       "75",
	}, &created))
	base := "/api/reconciliations/" + created.Reconciliation.ID.String()

	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, base+"/statement/rows", map[string]interface{}{
		"rows": []map[string]string{{"date": "2025-01-05", "description": "DUES", "amount": "75.00"}},
	}, nil))

	var open service.Unmatched
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/unmatched", nil, &open))
	require.Len(t, open.Transactions, 1)
	require.Len(t, open.StatementEntries, 1)

	var matched struct {
		Match models.ReconciliationMatch `json:"match"`
	}
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, base+"/matches", map[string]interface{}{
		"transaction_ids":     []string{open.Transactions[0].ID.String()},
		"statement_entry_ids": []string{open.StatementEntries[0].ID.String()},
	}, &matched))

	assert.Equal(t, http.StatusOK, api.json(http.MethodDelete, "/api/matches/"+matched.Match.ID.String(), nil, nil))

	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/unmatched", nil, &open))
	assert.Len(t, open.Transactions, 1)
	assert.Len(t, open.StatementEntries, 1)

	var errBody errorBody
	assert.Equal(t, http.StatusNotFound, api.json(http.MethodDelete, "/api/matches/"+matched.Match.ID.String(), nil, &errBody))
	assert.Equal(t, "not_found", errBody.Code)

	var result service.ReconcileAllResult
	require.Equal(t, http.StatusOK, api.json(http.MethodPost, base+"/reconcile-all", nil, &result))
	assert.Equal(t, int64(1), result.ReconciledCount)
	assert.True(t, result.Balanced)
}

func TestMoneyRendersWithTwoPlaces(t *testing.T) {
	api := newAPI(t)
	org := uuid.NewString()

	require.Equal(t, http.StatusOK, api.upload("/api/ledger/upload", "ledger.csv",
		"2025-01-05,Grant,500\n2025-01-09,Supplies,-150\n", map[string]string{"organization_id": org}, nil))

	var created map[string]map[string]interface{}
	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, "/api/reconciliations", map[string]interface{}{
		"organization_id":      org,
		"account_name":         "Operating Checking",
		"statement_start_date": "2025-01-01",
		"statement_end_date":   "2025-01-31",
		"beginning_balance":    1000,
		"ending_balance":       1350,
	}, &created))
	session := created["reconciliation"]
	assert.Equal(t, "1000.00", session["beginning_balance"])
	assert.Equal(t, "1350.00", session["ending_balance"])
	assert.Equal(t, "350.00", session["difference"])
	base := "/api/reconciliations/" + session["id"].(string)

	require.Equal(t, http.StatusCreated, api.json(http.MethodPost, base+"/statement/rows", map[string]interface{}{
		"rows": []map[string]string{{"date": "2025-01-06", "description": "Coffee", "amount": "-4.5"}},
	}, nil))

	var summary map[string]interface{}
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/summary", nil, &summary))
	assert.Equal(t, "1000.00", summary["beginning_balance"])
	assert.Equal(t, "1350.00", summary["calculated_book_balance"])
	assert.Equal(t, "1350.00", summary["statement_ending_balance"])
	assert.Equal(t, "0.00", summary["difference"])
	assert.Equal(t, "500.00", summary["period_income"])
	assert.Equal(t, "150.00", summary["period_expenses"])

	var entries struct {
		Items []map[string]interface{} `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/statement-entries", nil, &entries))
	require.Len(t, entries.Items, 1)
	assert.Equal(t, "4.50", entries.Items[0]["amount"])

	var report map[string]interface{}
	require.Equal(t, http.StatusOK, api.json(http.MethodGet, base+"/report", nil, &report))
	assert.Equal(t, "650.00", report["unmatched_transaction_total"])
	assert.Equal(t, "4.50", report["unmatched_entry_total"])
}

func TestRequestErrors(t *testing.T) {
	api := newAPI(t)
	var errBody errorBody

	assert.Equal(t, http.StatusBadRequest, api.json(http.MethodGet, "/api/reconciliations/not-an-id", nil, &errBody))
	assert.Equal(t, "invalid_id", errBody.Code)

	assert.Equal(t, http.StatusNotFound, api.json(http.MethodGet, "/api/reconciliations/"+uuid.NewString(), nil, &errBody))
	assert.Equal(t, "not_found", errBody.Code)

	code := api.json(http.MethodPost, "/api/reconciliations", map[string]interface{}{
		"organization_id":      uuid.NewString(),
		"account_name":         "Checking",
		"statement_start_date": "2025-01-31",
		"statement_end_date":   "2025-01-01",
		"beginning_balance":    "0",
		"ending_balance":       "0",
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_failed", errBody.Code)

	assert.Equal(t, http.StatusBadRequest, api.json(http.MethodGet, "/api/reconciliations", nil, &errBody))

	code = api.upload("/api/ledger/upload", "ledger.csv", "nothing,useful\n",
		map[string]string{"organization_id": uuid.NewString()}, &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no_valid_entries", errBody.Code)
}
