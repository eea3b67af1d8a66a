package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/docuvault/document-service/internal/models"
	"github.com/gin-gonic/gin"
)

// ListAuditEvents handles GET /api/audit: the caller's own trail, newest
// first.
func (h *Handlers) ListAuditEvents(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}

	page, perPage := pageParams(c, 25)
	events, total, err := h.Audit.List(c.Request.Context(), *actor.UserID, perPage, (page-1)*perPage)
	if err != nil {
		renderError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(events))
	for _, e := range events {
		payload = append(payload, auditPayload(e))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": payload,
		"meta": gin.H{
			"current_page": page,
			"per_page":     perPage,
			"total":        total,
		},
	})
}

// ListAuditActions handles GET /api/audit/actions: the action enumeration
// with display descriptions.
func (h *Handlers) ListAuditActions(c *gin.Context) {
	actions := make([]gin.H, 0, len(models.AuditActions))
	for _, a := range models.AuditActions {
		actions = append(actions, gin.H{
			"action":      a,
			"description": actionDescriptions[a],
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": actions})
}

// ExportAuditEvents handles GET /api/audit/export: the caller's full trail
// as CSV, for compliance requests.
func (h *Handlers) ExportAuditEvents(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}

	events, _, err := h.Audit.List(c.Request.Context(), *actor.UserID, 10000, 0)
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="audit_export.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "action", "subject_kind", "subject_id", "result", "ip_address", "created_at"})
	for _, e := range events {
		_ = w.Write([]string{
			strconv.FormatInt(e.ID, 10),
			string(e.Action),
			string(e.Subject.Kind),
			strconv.FormatInt(e.Subject.ID, 10),
			e.Result,
			e.IPAddress,
			iso(e.CreatedAt),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.log.Errorf("audit export write failed: %v", err)
	}
}
