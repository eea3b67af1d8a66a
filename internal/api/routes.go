package api

import (
	"github.com/docuvault/document-service/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PATCH, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

// RegisterRoutes wires the HTTP surface. Public sharing endpoints stay
// outside the auth group: token possession is the credential.
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, requireAuth gin.HandlerFunc) {
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		// Public token access. Lives under /share, not /documents/share:
		// gin's router rejects a literal segment next to the :id wildcard.
		api.GET("/share/:token", h.DownloadSharedDocument)
		api.GET("/share/:token/info", h.SharedDocumentInfo)

		auth := api.Group("", requireAuth)
		{
			// Document endpoints
			auth.POST("/documents", h.UploadDocument)
			auth.GET("/documents", h.ListDocuments)
			auth.GET("/documents/:id", h.GetDocument)
			auth.GET("/documents/:id/download", h.DownloadDocument)
			auth.DELETE("/documents/:id", h.DeleteDocument)

			// Sharing endpoints
			auth.POST("/documents/:id/share", h.CreateShare)
			auth.GET("/documents/:id/shares", h.ListShares)

			// Audit trail
			auth.GET("/audit", h.ListAuditEvents)
			auth.GET("/audit/actions", h.ListAuditActions)
			auth.GET("/audit/export", h.ExportAuditEvents)
		}
	}
}
