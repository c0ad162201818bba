package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	service "complybook/internal/services/reconciliation"
	"complybook/internal/services/statement"
)

// UploadStatement imports a bank statement export (csv or xls) into a session.
func (h *ReconciliationHandler) UploadStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required", "code": "file_required"})
		return
	}
	defer file.Close()

	h.logger.Info("received statement file", "session", id, "file", header.Filename, "size", header.Size)

	rows, err := statement.ReadFile(header.Filename, file)
	if err != nil {
		h.logger.Warn("cannot read statement file", "file", header.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read statement file", "code": "unreadable_file"})
		return
	}

	h.importRows(c, id, rows)
}

// UploadLedger loads a general ledger export for an organization. The
// ledger is otherwise owned elsewhere; this is how it gets here.
func (h *ReconciliationHandler) UploadLedger(c *gin.Context) {
	orgID, err := uuid.Parse(c.PostForm("organization_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required", "code": "invalid_id"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required", "code": "file_required"})
		return
	}
	defer file.Close()

	rows, err := statement.ReadFile(header.Filename, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read ledger file", "code": "unreadable_file"})
		return
	}

	inserted, skipped, err := h.service.LoadLedger(c.Request.Context(), orgID, rows)
	if err != nil {
		if errors.Is(err, service.ErrNoValidEntries) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no valid ledger rows", "code": "no_valid_entries"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file":              header.Filename,
		"transactionsAdded": inserted,
		"skipped":           skipped,
	})
}

// SearchLedger lists an organization's ledger transactions, newest first.
func (h *ReconciliationHandler) SearchLedger(c *gin.Context) {
	orgID, ok := queryID(c, "organization_id")
	if !ok {
		return
	}

	txs, err := h.service.SearchLedger(c.Request.Context(), orgID, c.Query("q"), c.Query("status"), 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": txs})
}
