package models

import (
	"fmt"
	"time"
)

// DocumentStatus tracks a document through its antivirus lifecycle.
// Transitions only move forward: pending_scan -> scanning -> clean|infected|failed.
type DocumentStatus string

const (
	StatusPendingScan DocumentStatus = "pending_scan"
	StatusScanning    DocumentStatus = "scanning"
	StatusClean       DocumentStatus = "clean"
	StatusInfected    DocumentStatus = "infected"
	StatusFailed      DocumentStatus = "failed"
)

// IsTerminal reports whether no further scan transition is allowed.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusClean || s == StatusInfected || s == StatusFailed
}

// IsDownloadable reports whether the document content may be served.
func (s DocumentStatus) IsDownloadable() bool {
	return s == StatusClean
}

// IsShareable reports whether sharing links may be created for the document.
func (s DocumentStatus) IsShareable() bool {
	return s == StatusClean
}

// ValidStatus reports whether v is a known status value.
func ValidStatus(v string) bool {
	switch DocumentStatus(v) {
	case StatusPendingScan, StatusScanning, StatusClean, StatusInfected, StatusFailed:
		return true
	}
	return false
}

// DocumentTypes is the fixed KYC category enumeration.
var DocumentTypes = []string{
	"passport",
	"id_card",
	"proof_of_address",
	"bank_statement",
	"contract",
	"tax_document",
	"other",
}

// ValidDocumentType reports whether v is a known category.
func ValidDocumentType(v string) bool {
	for _, t := range DocumentTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Document is a stored file plus its metadata and lifecycle status.
// StorageKey is the internal content-store object name and must never be
// exposed outside the service.
type Document struct {
	ID               int64          `json:"id"`
	UserID           string         `json:"user_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	OriginalFilename string         `json:"original_filename"`
	StorageKey       string         `json:"-"`
	MimeType         string         `json:"mime_type"`
	FileSize         int64          `json:"file_size"`
	DocumentType     string         `json:"document_type"`
	Status           DocumentStatus `json:"status"`
	Checksum         string         `json:"checksum"`
	ScannedAt        *time.Time     `json:"scanned_at"`
	ScanResult       *string        `json:"scan_result"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        *time.Time     `json:"-"`
}

// FormattedSize renders the byte size for display, e.g. "1.21 MB".
func (d Document) FormattedSize() string {
	size := float64(d.FileSize)
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	for size > 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
