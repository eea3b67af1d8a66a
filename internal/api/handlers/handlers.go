package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	Documents *services.DocumentService
	Sharing   *services.SharingService
	Audit     *services.Auditor
	log       *logrus.Entry
}

func New(documents *services.DocumentService, sharing *services.SharingService, audit *services.Auditor, log *logrus.Logger) *Handlers {
	return &Handlers{
		Documents: documents,
		Sharing:   sharing,
		Audit:     audit,
		log:       log.WithField("component", "api"),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actorFromContext builds the acting user from what the auth middleware set,
// plus the request context for the audit trail.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		return services.Actor{}, false
	}
	return services.User(userID, c.GetString("user_email"), c.ClientIP(), c.Request.UserAgent()), true
}

func anonymousActor(c *gin.Context) services.Actor {
	return services.Anonymous(c.ClientIP(), c.Request.UserAgent())
}

func documentIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		renderError(c, apperrors.Validation("invalid document id"))
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context, defaultPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 || perPage > 100 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// renderError maps the domain error taxonomy to HTTP. Internal detail
// (storage causes, SQL errors) never reaches the client.
func renderError(c *gin.Context, err error) {
	var ve *apperrors.ValidationError
	var ge *apperrors.GoneError
	var se *apperrors.StorageError

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.As(err, &ve):
		status, message = http.StatusBadRequest, ve.Msg
	case errors.As(err, &ge):
		status, message = http.StatusGone, ge.Error()
	case errors.As(err, &se):
		status, message = http.StatusInternalServerError, "storage unavailable"
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrForbidden):
		status, message = http.StatusForbidden, "action not permitted"
	case errors.Is(err, apperrors.ErrConflict):
		status, message = http.StatusConflict, "conflicting state"
	}

	c.JSON(status, gin.H{"error": gin.H{
		"code":    apperrors.Code(err),
		"message": message,
	}})
}

func unauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{
		"code":    "UNAUTHORIZED",
		"message": "unauthenticated",
	}})
}
