package models

import "time"

// AuditAction is the fixed enumeration of audited operations.
type AuditAction string

const (
	ActionDocumentCreated    AuditAction = "document.created"
	ActionDocumentViewed     AuditAction = "document.viewed"
	ActionDocumentDownloaded AuditAction = "document.downloaded"
	ActionDocumentUpdated    AuditAction = "document.updated"
	ActionDocumentDeleted    AuditAction = "document.deleted"
	ActionDocumentShared     AuditAction = "document.shared"
	ActionShareAccessed      AuditAction = "document.share_accessed"
	ActionScanCompleted      AuditAction = "document.scan_completed"
	ActionVirusDetected      AuditAction = "document.virus_detected"
)

// AuditActions lists every known action, for the audit browsing endpoints.
var AuditActions = []AuditAction{
	ActionDocumentCreated,
	ActionDocumentViewed,
	ActionDocumentDownloaded,
	ActionDocumentUpdated,
	ActionDocumentDeleted,
	ActionDocumentShared,
	ActionShareAccessed,
	ActionScanCompleted,
	ActionVirusDetected,
}

// SubjectKind tags the polymorphic audit subject.
type SubjectKind string

const (
	SubjectDocument SubjectKind = "document"
	SubjectShare    SubjectKind = "share"
)

// SubjectRef identifies the resource an audit event is about.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   int64       `json:"id"`
}

// Audit outcome values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent is one immutable row of the compliance ledger. UserEmail is a
// snapshot taken at record time so the trail survives user deletion. Metadata
// must never contain document content or secrets.
type AuditEvent struct {
	ID           int64          `json:"id"`
	UserID       *string        `json:"user_id"`
	UserEmail    *string        `json:"user_email"`
	Subject      SubjectRef     `json:"subject"`
	Action       AuditAction    `json:"action"`
	Metadata     map[string]any `json:"metadata"`
	IPAddress    string         `json:"ip_address"`
	UserAgent    string         `json:"user_agent"`
	Result       string         `json:"result"`
	ErrorMessage *string        `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
}
