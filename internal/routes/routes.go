package routes

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	handler "complybook/internal/handlers"
	service "complybook/internal/services/reconciliation"
)

type Options struct {
	RequestTimeout time.Duration
}

func RegisterRoutes(r *gin.Engine, reconService *service.ReconciliationService, logger *log.Logger, opts Options) {
	reconHandler := handler.NewReconciliationHandler(reconService, logger)

	api := r.Group("/api")
	api.Use(RequestLogger(logger), RequestTimeout(opts.RequestTimeout))

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliations")
	{
		recon.POST("", reconHandler.CreateSession)
		recon.GET("", reconHandler.ListSessions)
		recon.GET("/latest", reconHandler.LatestSession)
		recon.GET("/:id", reconHandler.GetSession)
		recon.DELETE("/:id", reconHandler.DeleteSession)

		recon.POST("/:id/statement", reconHandler.UploadStatement)
		recon.POST("/:id/statement/rows", reconHandler.ImportStatementRows)
		recon.GET("/:id/statement-entries", reconHandler.ListStatementEntries)

		recon.GET("/:id/unmatched", reconHandler.ListUnmatched)
		recon.GET("/:id/suggestions", reconHandler.SuggestMatches)
		recon.POST("/:id/suggestions/apply", reconHandler.ApplySuggestion)
		recon.GET("/:id/matches", reconHandler.ListMatches)
		recon.POST("/:id/matches", reconHandler.Match)
		recon.POST("/:id/reconcile-all", reconHandler.ReconcileAll)
		recon.POST("/:id/complete", reconHandler.Complete)

		recon.GET("/:id/summary", reconHandler.Summary)
		recon.GET("/:id/report", reconHandler.Report)
		recon.GET("/:id/audit", reconHandler.AuditTrail)
		recon.GET("/:id/audit/verify", reconHandler.VerifyAuditTrail)
	}

	api.DELETE("/matches/:matchId", reconHandler.Unmatch)

	ledger := api.Group("/ledger")
	{
		ledger.POST("/upload", reconHandler.UploadLedger)
		ledger.GET("/transactions", reconHandler.SearchLedger)
	}
}

// RequestTimeout bounds the request context. Database calls observe it
// through WithContext.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
