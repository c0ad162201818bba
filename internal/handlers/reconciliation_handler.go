package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	service "complybook/internal/services/reconciliation"
	"complybook/internal/services/statement"
)

// PerformedByHeader names the acting user. There is no authentication; the
// value is recorded as given.
const PerformedByHeader = "X-Performed-By"

type ReconciliationHandler struct {
	service *service.ReconciliationService
	logger  *log.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, logger *log.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, logger: logger}
}

// amountField accepts a JSON number or a string so form values can be sent
// either way. Parsing happens in the service.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

type createSessionRequest struct {
	OrganizationID   string      `json:"organization_id"`
	AccountName      string      `json:"account_name"`
	StartDate        string      `json:"statement_start_date"`
	EndDate          string      `json:"statement_end_date"`
	BeginningBalance amountField `json:"beginning_balance"`
	EndingBalance    amountField `json:"ending_balance"`
	StatementBalance amountField `json:"statement_balance"`
}

func (h *ReconciliationHandler) CreateSession(c *gin.Context) {
	var payload createSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": "invalid_payload"})
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), service.CreateSessionInput{
		OrganizationID:   payload.OrganizationID,
		AccountName:      payload.AccountName,
		StartDate:        payload.StartDate,
		EndDate:          payload.EndDate,
		BeginningBalance: string(payload.BeginningBalance),
		EndingBalance:    string(payload.EndingBalance),
		StatementBalance: string(payload.StatementBalance),
		CreatedBy:        performedBy(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reconciliation": session})
}

func (h *ReconciliationHandler) ListSessions(c *gin.Context) {
	orgID, ok := queryID(c, "organization_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.service.ListSessions(c.Request.Context(), orgID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sessions})
}

// LatestSession resumes the most recent session of an account, open or not.
func (h *ReconciliationHandler) LatestSession(c *gin.Context) {
	orgID, ok := queryID(c, "organization_id")
	if !ok {
		return
	}

	session, err := h.service.Resume(c.Request.Context(), orgID, c.Query("account_name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": session})
}

func (h *ReconciliationHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": session})
}

func (h *ReconciliationHandler) DeleteSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reconciliation deleted"})
}

func (h *ReconciliationHandler) ImportStatementRows(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var payload struct {
		Rows []statement.Row `json:"rows"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": "invalid_payload"})
		return
	}

	h.importRows(c, id, payload.Rows)
}

func (h *ReconciliationHandler) importRows(c *gin.Context, sessionID uuid.UUID, rows []statement.Row) {
	result, err := h.service.ImportStatement(c.Request.Context(), sessionID, rows, performedBy(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"entries":    result.Entries,
		"imported":   len(result.Entries),
		"skipped":    result.Skipped,
		"duplicates": result.Duplicates,
	})
}

func (h *ReconciliationHandler) ListStatementEntries(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.ListStatementEntries(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *ReconciliationHandler) ListUnmatched(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	open, err := h.service.ListUnmatched(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, open)
}

func (h *ReconciliationHandler) SuggestMatches(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	suggestions, err := h.service.SuggestMatches(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": suggestions})
}

type pairRequest struct {
	TransactionID    string `json:"transaction_id"`
	StatementEntryID string `json:"statement_entry_id"`
}

func (h *ReconciliationHandler) ApplySuggestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var payload pairRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": "invalid_payload"})
		return
	}
	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID", "code": "invalid_id"})
		return
	}
	entryID, err := uuid.Parse(payload.StatementEntryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement entry ID", "code": "invalid_id"})
		return
	}

	match, err := h.service.ApplySuggestion(c.Request.Context(), id, txID, entryID, performedBy(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "suggestion applied", "match": match})
}

func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	matches, err := h.service.ListMatches(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

// Match takes the current selection of both lists. Anything other than one
// item on each side is rejected by the service.
func (h *ReconciliationHandler) Match(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var payload struct {
		TransactionIDs    []string `json:"transaction_ids"`
		StatementEntryIDs []string `json:"statement_entry_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": "invalid_payload"})
		return
	}
	txIDs, err := parseIDs(payload.TransactionIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID", "code": "invalid_id"})
		return
	}
	entryIDs, err := parseIDs(payload.StatementEntryIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement entry ID", "code": "invalid_id"})
		return
	}

	match, err := h.service.MatchSelection(c.Request.Context(), id, txIDs, entryIDs, performedBy(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "transaction matched", "match": match})
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	matchID, ok := pathID(c, "matchId")
	if !ok {
		return
	}

	if err := h.service.Unmatch(c.Request.Context(), matchID, performedBy(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match removed"})
}

func (h *ReconciliationHandler) ReconcileAll(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.ReconcileAll(c.Request.Context(), id, performedBy(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.Complete(c.Request.Context(), id, performedBy(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reconciliation completed", "reconciliation": session})
}

func (h *ReconciliationHandler) Summary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) Report(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReconciliationHandler) AuditTrail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.AuditTrail(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *ReconciliationHandler) VerifyAuditTrail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.VerifyAuditTrail(c.Request.Context(), id)
	if err != nil && result == nil {
		h.respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"code":         "audit_tampered",
			"verification": result,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError maps service errors onto status codes. Unknown errors are
// logged and reported as 500 without their message.
func (h *ReconciliationHandler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, service.ErrInvalidSelection):
		status, code = http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, service.ErrNoValidEntries):
		status, code = http.StatusBadRequest, "no_valid_entries"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAlreadyMatched):
		status, code = http.StatusConflict, "already_matched"
	case errors.Is(err, service.ErrSessionClosed):
		status, code = http.StatusConflict, "session_closed"
	case errors.Is(err, service.ErrAuditTampered):
		status, code = http.StatusConflict, "audit_tampered"
	case errors.Is(err, service.ErrIncompleteReconciliation):
		status, code = http.StatusUnprocessableEntity, "incomplete_reconciliation"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func performedBy(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(PerformedByHeader))
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "invalid_id"})
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required", "code": "invalid_id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
