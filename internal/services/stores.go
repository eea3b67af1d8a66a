package services

import (
	"context"
	"io"
	"time"

	"github.com/docuvault/document-service/internal/models"
	"github.com/docuvault/document-service/internal/storage"
)

// DocumentStore is the metadata persistence the lifecycle manager runs on.
// Implemented by storage.Postgres and storage.Memory.
type DocumentStore interface {
	InsertDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id int64) (models.Document, bool, error)
	ListDocuments(ctx context.Context, userID string, f storage.DocumentFilter) ([]models.Document, int64, error)
	SoftDeleteDocument(ctx context.Context, id int64) error
	ClaimForScan(ctx context.Context, id int64) (bool, error)
	SetScanResult(ctx context.Context, id int64, status models.DocumentStatus, result string, scannedAt time.Time) (bool, error)
}

// ShareStore persists sharing links. ConsumeShare must be atomic with respect
// to the download counter and the active flag.
type ShareStore interface {
	InsertShare(ctx context.Context, s *models.DocumentShare) error
	GetShareByToken(ctx context.Context, token string) (models.DocumentShare, bool, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	ListActiveShares(ctx context.Context, documentID int64) ([]models.DocumentShare, error)
	ConsumeShare(ctx context.Context, token string, now time.Time) (models.DocumentShare, bool, error)
	DeactivateShare(ctx context.Context, id int64) error
}

// AuditStore appends to and reads the compliance ledger.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, e *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, userID string, limit, offset int) ([]models.AuditEvent, int64, error)
}

// ContentStore is the opaque blob storage. Blobs are written exactly once and
// never mutated in place.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TaskQueue dispatches asynchronous scan work, delivered at least once.
type TaskQueue interface {
	EnqueueScan(ctx context.Context, documentID int64) error
}
