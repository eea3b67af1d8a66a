package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/models"
	"github.com/docuvault/document-service/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScanVerdict is the terminal outcome of an antivirus scan.
type ScanVerdict string

const (
	VerdictClean    ScanVerdict = "clean"
	VerdictInfected ScanVerdict = "infected"
	VerdictFailed   ScanVerdict = "failed"
)

// CreateDocumentInput carries a validated upload. Content is the exact byte
// sequence that will be persisted and checksummed.
type CreateDocumentInput struct {
	Title            string
	Description      string
	DocumentType     string
	OriginalFilename string
	MimeType         string
	Content          []byte
}

// DownloadResult is a document's content plus the headers needed to serve it.
type DownloadResult struct {
	Content  io.ReadCloser
	Filename string
	MimeType string
	Size     int64
}

// DocumentService owns document metadata and status transitions, from upload
// through scan completion to deletion.
type DocumentService struct {
	docs    DocumentStore
	content ContentStore
	queue   TaskQueue
	audit   *Auditor
	gateway AccessGateway
	log     *logrus.Entry
}

func NewDocumentService(docs DocumentStore, content ContentStore, queue TaskQueue, audit *Auditor, log *logrus.Logger) *DocumentService {
	return &DocumentService{
		docs:    docs,
		content: content,
		queue:   queue,
		audit:   audit,
		log:     log.WithField("component", "documents"),
	}
}

// Create checksums the upload, persists the blob under a generated key, then
// writes the metadata row in pending_scan and enqueues the scan task.
// The blob write happens first so a storage failure leaves no row behind.
func (s *DocumentService) Create(ctx context.Context, actor Actor, in CreateDocumentInput) (models.Document, error) {
	if actor.UserID == nil {
		return models.Document{}, apperrors.ErrForbidden
	}
	if in.Title == "" {
		return models.Document{}, apperrors.Validation("title is required")
	}
	if len(in.Content) == 0 {
		return models.Document{}, apperrors.Validation("file is empty")
	}
	if !models.ValidDocumentType(in.DocumentType) {
		return models.Document{}, apperrors.Validation("unknown document type %q", in.DocumentType)
	}

	sum := sha256.Sum256(in.Content)
	checksum := hex.EncodeToString(sum[:])

	// The key never derives from the user-supplied filename; only the
	// extension is carried over for content-type friendliness.
	ext := strings.ToLower(filepath.Ext(in.OriginalFilename))
	key := uuid.New().String() + ext

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := s.content.Put(ctx, key, bytes.NewReader(in.Content), int64(len(in.Content)), mimeType); err != nil {
		return models.Document{}, apperrors.Storage("put", err)
	}

	doc := models.Document{
		UserID:           *actor.UserID,
		Title:            in.Title,
		Description:      in.Description,
		OriginalFilename: in.OriginalFilename,
		StorageKey:       key,
		MimeType:         mimeType,
		FileSize:         int64(len(in.Content)),
		DocumentType:     in.DocumentType,
		Status:           models.StatusPendingScan,
		Checksum:         checksum,
	}

	if err := s.docs.InsertDocument(ctx, &doc); err != nil {
		// Keep blob and row consistent: no orphan blobs on a failed insert.
		if delErr := s.content.Delete(ctx, key); delErr != nil {
			s.log.Warnf("failed to clean up blob %s after insert failure: %v", key, delErr)
		}
		return models.Document{}, fmt.Errorf("failed to save document metadata: %w", err)
	}

	if err := s.queue.EnqueueScan(ctx, doc.ID); err != nil {
		// The document stays pending_scan; redelivery is an operational
		// concern, not the uploader's.
		s.log.Errorf("failed to enqueue scan for document %d: %v", doc.ID, err)
	}

	s.audit.Success(ctx, actor, models.ActionDocumentCreated, models.SubjectRef{Kind: models.SubjectDocument, ID: doc.ID}, map[string]any{
		"file_size":     doc.FileSize,
		"mime_type":     doc.MimeType,
		"document_type": doc.DocumentType,
	})

	return doc, nil
}

// Get returns metadata to the owner. Nonexistent documents and documents
// owned by someone else are indistinguishable.
func (s *DocumentService) Get(ctx context.Context, actor Actor, id int64) (models.Document, error) {
	doc, err := s.authorize(ctx, actor, id)
	if err != nil {
		s.auditDocFailure(ctx, actor, models.ActionDocumentViewed, id, err)
		return models.Document{}, err
	}

	s.audit.Success(ctx, actor, models.ActionDocumentViewed, models.SubjectRef{Kind: models.SubjectDocument, ID: id}, nil)
	return doc, nil
}

// List returns a page of the owner's live documents, newest first.
func (s *DocumentService) List(ctx context.Context, actor Actor, f storage.DocumentFilter) ([]models.Document, int64, error) {
	if actor.UserID == nil {
		return nil, 0, apperrors.ErrForbidden
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return nil, 0, apperrors.Validation("unknown status %q", f.Status)
	}
	if f.DocumentType != "" && !models.ValidDocumentType(f.DocumentType) {
		return nil, 0, apperrors.Validation("unknown document type %q", f.DocumentType)
	}
	return s.docs.ListDocuments(ctx, *actor.UserID, f)
}

// Download serves the owner's clean document content.
func (s *DocumentService) Download(ctx context.Context, actor Actor, id int64) (models.Document, DownloadResult, error) {
	doc, err := s.authorize(ctx, actor, id)
	if err != nil {
		s.auditDocFailure(ctx, actor, models.ActionDocumentDownloaded, id, err)
		return models.Document{}, DownloadResult{}, err
	}

	if !s.gateway.CanDownload(*actor.UserID, doc) {
		s.auditDocFailure(ctx, actor, models.ActionDocumentDownloaded, id, apperrors.ErrForbidden)
		return models.Document{}, DownloadResult{}, apperrors.ErrForbidden
	}

	result, err := s.fetchContent(ctx, doc)
	if err != nil {
		s.auditDocFailure(ctx, actor, models.ActionDocumentDownloaded, id, err)
		return models.Document{}, DownloadResult{}, err
	}

	s.audit.Success(ctx, actor, models.ActionDocumentDownloaded, models.SubjectRef{Kind: models.SubjectDocument, ID: id}, map[string]any{
		"file_size": doc.FileSize,
		"mime_type": doc.MimeType,
	})
	return doc, result, nil
}

// fetchContent opens the blob behind a document row. A missing blob under a
// live row is a data-integrity anomaly: it is logged loudly and reported as
// not found rather than swallowed.
func (s *DocumentService) fetchContent(ctx context.Context, doc models.Document) (DownloadResult, error) {
	rc, err := s.content.Get(ctx, doc.StorageKey)
	if err != nil {
		exists, existsErr := s.content.Exists(ctx, doc.StorageKey)
		if existsErr == nil && !exists {
			s.log.Errorf("integrity anomaly: blob %s missing for live document %d", doc.StorageKey, doc.ID)
			return DownloadResult{}, fmt.Errorf("document %d content missing: %w", doc.ID, apperrors.ErrNotFound)
		}
		return DownloadResult{}, apperrors.Storage("get", err)
	}

	return DownloadResult{
		Content:  rc,
		Filename: doc.OriginalFilename,
		MimeType: doc.MimeType,
		Size:     doc.FileSize,
	}, nil
}

// Delete removes the blob (best effort) and tombstones the metadata row.
// A failed blob delete leaks an orphan object, which is preferable to an
// undeletable record; it is logged and the tombstone proceeds.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, id int64) error {
	doc, err := s.authorize(ctx, actor, id)
	if err != nil {
		s.auditDocFailure(ctx, actor, models.ActionDocumentDeleted, id, err)
		return err
	}

	if err := s.content.Delete(ctx, doc.StorageKey); err != nil {
		s.log.Errorf("failed to delete blob %s for document %d, proceeding with tombstone: %v", doc.StorageKey, doc.ID, err)
	}

	if err := s.docs.SoftDeleteDocument(ctx, id); err != nil {
		s.auditDocFailure(ctx, actor, models.ActionDocumentDeleted, id, err)
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}

	s.audit.Success(ctx, actor, models.ActionDocumentDeleted, models.SubjectRef{Kind: models.SubjectDocument, ID: id}, nil)
	return nil
}

// ReportScanResult records the scan worker's terminal verdict. It is valid
// only while the document is scanning; duplicate or late callbacks are
// rejected with a conflict and logged as anomalies, leaving the first
// terminal state untouched.
func (s *DocumentService) ReportScanResult(ctx context.Context, id int64, verdict ScanVerdict, detail string) error {
	var status models.DocumentStatus
	switch verdict {
	case VerdictClean:
		status = models.StatusClean
	case VerdictInfected:
		status = models.StatusInfected
	case VerdictFailed:
		status = models.StatusFailed
	default:
		return apperrors.Validation("unknown scan verdict %q", verdict)
	}

	updated, err := s.docs.SetScanResult(ctx, id, status, detail, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record scan result for document %d: %w", id, err)
	}
	if !updated {
		s.log.Warnf("scan result %q reported for document %d not in scanning state", verdict, id)
		return apperrors.ErrConflict
	}

	action := models.ActionScanCompleted
	if verdict == VerdictInfected {
		action = models.ActionVirusDetected
	}
	s.audit.Success(ctx, Actor{}, action, models.SubjectRef{Kind: models.SubjectDocument, ID: id}, map[string]any{
		"verdict": string(verdict),
		"detail":  detail,
	})

	s.log.Infof("document %d scan finished: %s", id, verdict)
	return nil
}

// ClaimForScan transitions pending_scan -> scanning on behalf of the worker.
// Returns false for missing, deleted or already-claimed documents.
func (s *DocumentService) ClaimForScan(ctx context.Context, id int64) (models.Document, bool, error) {
	claimed, err := s.docs.ClaimForScan(ctx, id)
	if err != nil || !claimed {
		return models.Document{}, false, err
	}
	doc, found, err := s.docs.GetDocument(ctx, id)
	if err != nil || !found {
		return models.Document{}, false, err
	}
	return doc, true, nil
}

// GetForShare returns a live document for the sharing engine without
// ownership checks; callers gate access themselves.
func (s *DocumentService) GetForShare(ctx context.Context, id int64) (models.Document, bool, error) {
	return s.docs.GetDocument(ctx, id)
}

func (s *DocumentService) authorize(ctx context.Context, actor Actor, id int64) (models.Document, error) {
	if actor.UserID == nil {
		return models.Document{}, apperrors.ErrForbidden
	}
	doc, found, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	if !found || !s.gateway.CanView(*actor.UserID, doc) {
		return models.Document{}, apperrors.ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) auditDocFailure(ctx context.Context, actor Actor, action models.AuditAction, id int64, err error) {
	s.audit.Failure(ctx, actor, action, models.SubjectRef{Kind: models.SubjectDocument, ID: id}, nil, apperrors.Code(err))
}
