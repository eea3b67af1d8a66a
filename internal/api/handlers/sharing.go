package handlers

import (
	"net/http"
	"strings"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/services"
	"github.com/gin-gonic/gin"
)

// Defaulting happens here, at the boundary, so the engine only ever sees
// explicit values and a single source of truth exists for both.
const (
	defaultExpiresInHours = 24
	defaultMaxDownloads   = 1
	maxExpiresInHours     = 168 // one week
	maxMaxDownloads       = 100
)

type createShareRequest struct {
	ExpiresInHours  *int    `json:"expires_in_hours"`
	MaxDownloads    *int    `json:"max_downloads"`
	SharedWithEmail *string `json:"shared_with_email"`
}

// CreateShare handles POST /api/documents/:id/share.
func (h *Handlers) CreateShare(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}
	id, ok := documentIDParam(c)
	if !ok {
		return
	}

	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		renderError(c, apperrors.Validation("invalid request body"))
		return
	}

	expiresInHours := defaultExpiresInHours
	if req.ExpiresInHours != nil {
		expiresInHours = *req.ExpiresInHours
	}
	if expiresInHours < 1 || expiresInHours > maxExpiresInHours {
		renderError(c, apperrors.Validation("expires_in_hours must be between 1 and %d", maxExpiresInHours))
		return
	}

	maxDownloads := defaultMaxDownloads
	if req.MaxDownloads != nil {
		maxDownloads = *req.MaxDownloads
	}
	if maxDownloads < 1 || maxDownloads > maxMaxDownloads {
		renderError(c, apperrors.Validation("max_downloads must be between 1 and %d", maxMaxDownloads))
		return
	}

	if req.SharedWithEmail != nil && !strings.Contains(*req.SharedWithEmail, "@") {
		renderError(c, apperrors.Validation("shared_with_email is not a valid email address"))
		return
	}

	share, err := h.Sharing.CreateLink(c.Request.Context(), actor, id, services.ShareInput{
		ExpiresInHours:  expiresInHours,
		MaxDownloads:    maxDownloads,
		SharedWithEmail: req.SharedWithEmail,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "sharing link created",
		"data":    sharePayload(share, h.Sharing.ShareURL(share)),
	})
}

// ListShares handles GET /api/documents/:id/shares, active links only.
func (h *Handlers) ListShares(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}
	id, ok := documentIDParam(c)
	if !ok {
		return
	}

	shares, err := h.Sharing.ListLinks(c.Request.Context(), actor, id)
	if err != nil {
		renderError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(shares))
	for _, s := range shares {
		payload = append(payload, sharePayload(s, h.Sharing.ShareURL(s)))
	}

	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// SharedDocumentInfo handles GET /api/share/:token/info: public metadata
// about the link and its document. No expiry semantics apply here; only
// ConsumeAccess enforces them.
func (h *Handlers) SharedDocumentInfo(c *gin.Context) {
	share, doc, err := h.Sharing.FindByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"share": gin.H{
				"id":             share.ID,
				"token":          share.Token,
				"expires_at":     iso(share.ExpiresAt),
				"max_downloads":  share.MaxDownloads,
				"download_count": share.DownloadCount,
				"is_active":      share.IsActive,
			},
			"document": documentPublic(doc),
		},
	})
}

// DownloadSharedDocument handles GET /api/share/:token: the public download.
// Consuming the token is atomic; over-budget or expired attempts get 410.
func (h *Handlers) DownloadSharedDocument(c *gin.Context) {
	actor := anonymousActor(c)

	_, doc, err := h.Sharing.ConsumeAccess(c.Request.Context(), actor, c.Param("token"))
	if err != nil {
		renderError(c, err)
		return
	}

	result, err := h.Sharing.DownloadShared(c.Request.Context(), doc)
	if err != nil {
		renderError(c, err)
		return
	}
	defer result.Content.Close()

	serveContent(c, result)
}
