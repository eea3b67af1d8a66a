package handlers

import (
	"time"

	"github.com/docuvault/document-service/internal/models"
	"github.com/gin-gonic/gin"
)

// Display strings live here, outside the data model.

var statusLabels = map[models.DocumentStatus]string{
	models.StatusPendingScan: "Awaiting antivirus scan",
	models.StatusScanning:    "Scan in progress",
	models.StatusClean:       "Validated",
	models.StatusInfected:    "Virus detected",
	models.StatusFailed:      "Scan failed",
}

var actionDescriptions = map[models.AuditAction]string{
	models.ActionDocumentCreated:    "Document created",
	models.ActionDocumentViewed:     "Document viewed",
	models.ActionDocumentDownloaded: "Document downloaded",
	models.ActionDocumentUpdated:    "Document updated",
	models.ActionDocumentDeleted:    "Document deleted",
	models.ActionDocumentShared:     "Document shared",
	models.ActionShareAccessed:      "Accessed through sharing link",
	models.ActionScanCompleted:      "Antivirus scan completed",
	models.ActionVirusDetected:      "Virus detected",
}

func iso(t time.Time) string { return t.Format(time.RFC3339) }

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// documentSummary is the listing/creation shape; the checksum stays out.
func documentSummary(d models.Document) gin.H {
	return gin.H{
		"id":                d.ID,
		"title":             d.Title,
		"description":       d.Description,
		"original_filename": d.OriginalFilename,
		"mime_type":         d.MimeType,
		"file_size":         d.FileSize,
		"formatted_size":    d.FormattedSize(),
		"document_type":     d.DocumentType,
		"status":            d.Status,
		"status_label":      statusLabels[d.Status],
		"created_at":        iso(d.CreatedAt),
		"scanned_at":        isoPtr(d.ScannedAt),
	}
}

// documentDetail is the owner-only shape, checksum and scan result included.
func documentDetail(d models.Document) gin.H {
	out := documentSummary(d)
	out["checksum"] = d.Checksum
	out["updated_at"] = iso(d.UpdatedAt)
	out["scan_result"] = d.ScanResult
	return out
}

// documentPublic is what a sharing-link holder may see.
func documentPublic(d models.Document) gin.H {
	return gin.H{
		"id":                d.ID,
		"title":             d.Title,
		"original_filename": d.OriginalFilename,
		"mime_type":         d.MimeType,
		"file_size":         d.FileSize,
		"formatted_size":    d.FormattedSize(),
		"document_type":     d.DocumentType,
		"status":            d.Status,
	}
}

func sharePayload(s models.DocumentShare, url string) gin.H {
	return gin.H{
		"id":             s.ID,
		"token":          s.Token,
		"url":            url,
		"expires_at":     iso(s.ExpiresAt),
		"max_downloads":  s.MaxDownloads,
		"download_count": s.DownloadCount,
		"is_active":      s.IsActive,
	}
}

func auditPayload(e models.AuditEvent) gin.H {
	return gin.H{
		"id":            e.ID,
		"user_id":       e.UserID,
		"user_email":    e.UserEmail,
		"subject_kind":  e.Subject.Kind,
		"subject_id":    e.Subject.ID,
		"action":        e.Action,
		"description":   actionDescriptions[e.Action],
		"metadata":      e.Metadata,
		"ip_address":    e.IPAddress,
		"user_agent":    e.UserAgent,
		"result":        e.Result,
		"error_message": e.ErrorMessage,
		"created_at":    iso(e.CreatedAt),
	}
}
