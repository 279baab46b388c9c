package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	handler "document-reconciliation-backend/internal/handlers"
	"document-reconciliation-backend/internal/logger"
	service "document-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, reconService *service.Service, log zerolog.Logger) {
	reconHandler := handler.NewReconciliationHandler(reconService)

	api := r.Group("/api")
	api.Use(requestLogger(log))

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Automatic assignment passes
	assignments := api.Group("/assignments")
	assignments.POST("/run", reconHandler.RunAssignment)
	assignments.GET("/:runId", reconHandler.GetRun)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.GET("/:id/candidates", reconHandler.ScoreCandidates)
	tx.GET("/:id/attachments", reconHandler.ListAttachments)
	tx.POST("/:id/attachments", reconHandler.AttachManually)
	tx.GET("/:id/amount-check", reconHandler.AmountCheck)

	api.DELETE("/attachments/:id", reconHandler.Detach)
	api.GET("/documents", reconHandler.SearchDocuments)

	rules := api.Group("/pattern-rules")
	{
		rules.GET("", reconHandler.ListPatternRules)
		rules.POST("", reconHandler.CreatePatternRule)
	}
}

// requestLogger attaches a logger carrying the request's method and route
// to the request context.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := log.With().
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		c.Next()
	}
}
