package models

import "time"

// DocumentShare is a time/count-limited public download grant for one clean
// document. Rows are never deleted, only deactivated, so the audit trail can
// always resolve a share id.
type DocumentShare struct {
	ID              int64     `json:"id"`
	DocumentID      int64     `json:"document_id"`
	Token           string    `json:"token"`
	SharedWithEmail *string   `json:"shared_with_email"`
	ExpiresAt       time.Time `json:"expires_at"`
	MaxDownloads    int       `json:"max_downloads"`
	DownloadCount   int       `json:"download_count"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UsableAt reports whether a public download may be granted at the given
// instant: active, not expired, and download budget (if any) not exhausted.
func (s DocumentShare) UsableAt(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if !now.Before(s.ExpiresAt) {
		return false
	}
	if s.MaxDownloads > 0 && s.DownloadCount >= s.MaxDownloads {
		return false
	}
	return true
}
