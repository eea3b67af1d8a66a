package handlers

import (
	"io"
	"net/http"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/services"
	"github.com/docuvault/document-service/internal/storage"
	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds a single document upload.
const maxUploadSize = 10 << 20 // 10 MB

// UploadDocument handles POST /api/documents: multipart upload plus metadata
// fields. The antivirus scan runs asynchronously; the response reports the
// pending_scan status and the client polls for the verdict.
func (h *Handlers) UploadDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		renderError(c, apperrors.Validation("file is required"))
		return
	}
	if fileHeader.Size > maxUploadSize {
		renderError(c, apperrors.Validation("file too large: %s", fileHeader.Filename))
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}
	if len(title) > 255 {
		renderError(c, apperrors.Validation("title must be at most 255 characters"))
		return
	}

	documentType := c.DefaultPostForm("document_type", "other")

	file, err := fileHeader.Open()
	if err != nil {
		renderError(c, apperrors.Validation("failed to open uploaded file"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		renderError(c, apperrors.Validation("failed to read uploaded file"))
		return
	}
	if int64(len(content)) > maxUploadSize {
		renderError(c, apperrors.Validation("file too large: %s", fileHeader.Filename))
		return
	}

	doc, err := h.Documents.Create(c.Request.Context(), actor, services.CreateDocumentInput{
		Title:            title,
		Description:      c.PostForm("description"),
		DocumentType:     documentType,
		OriginalFilename: fileHeader.Filename,
		MimeType:         fileHeader.Header.Get("Content-Type"),
		Content:          content,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "document uploaded, antivirus scan in progress",
		"data":    documentSummary(doc),
	})
}

// ListDocuments handles GET /api/documents with status/type filters and
// pagination.
func (h *Handlers) ListDocuments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}

	page, perPage := pageParams(c, 15)
	filter := storage.DocumentFilter{
		Status:       c.Query("status"),
		DocumentType: c.Query("document_type"),
		Limit:        perPage,
		Offset:       (page - 1) * perPage,
	}

	docs, total, err := h.Documents.List(c.Request.Context(), actor, filter)
	if err != nil {
		renderError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		payload = append(payload, documentSummary(d))
	}

	lastPage := (total + int64(perPage) - 1) / int64(perPage)
	if lastPage < 1 {
		lastPage = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"data": payload,
		"meta": gin.H{
			"current_page": page,
			"per_page":     perPage,
			"total":        total,
			"last_page":    lastPage,
		},
	})
}

// GetDocument handles GET /api/documents/:id.
func (h *Handlers) GetDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}
	id, ok := documentIDParam(c)
	if !ok {
		return
	}

	doc, err := h.Documents.Get(c.Request.Context(), actor, id)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": documentDetail(doc)})
}

// DownloadDocument handles GET /api/documents/:id/download.
func (h *Handlers) DownloadDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}
	id, ok := documentIDParam(c)
	if !ok {
		return
	}

	_, result, err := h.Documents.Download(c.Request.Context(), actor, id)
	if err != nil {
		renderError(c, err)
		return
	}
	defer result.Content.Close()

	serveContent(c, result)
}

// DeleteDocument handles DELETE /api/documents/:id.
func (h *Handlers) DeleteDocument(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		unauthenticated(c)
		return
	}
	id, ok := documentIDParam(c)
	if !ok {
		return
	}

	if err := h.Documents.Delete(c.Request.Context(), actor, id); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

func serveContent(c *gin.Context, result services.DownloadResult) {
	c.DataFromReader(http.StatusOK, result.Size, result.MimeType, result.Content, map[string]string{
		"Content-Disposition": `attachment; filename="` + result.Filename + `"`,
	})
}
