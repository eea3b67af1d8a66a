package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docuvault/document-service/internal/models"
)

// Memory is an in-process implementation of the document, share and audit
// stores. It backs the test suite and the standalone development mode where
// no PostgreSQL instance is available. All methods hold the store mutex for
// their full duration, so conditional updates (scan claims, share
// consumption) are atomic exactly like their SQL counterparts.
type Memory struct {
	mu sync.Mutex

	documents map[int64]*models.Document
	shares    map[int64]*models.DocumentShare
	audits    []models.AuditEvent

	nextDocumentID int64
	nextShareID    int64
	nextAuditID    int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		documents: make(map[int64]*models.Document),
		shares:    make(map[int64]*models.DocumentShare),
	}
}

func (m *Memory) InsertDocument(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextDocumentID++
	d.ID = m.nextDocumentID
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id int64) (models.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.DeletedAt != nil {
		return models.Document{}, false, nil
	}
	return *d, true, nil
}

func (m *Memory) ListDocuments(_ context.Context, userID string, f DocumentFilter) ([]models.Document, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Document
	for _, d := range m.documents {
		if d.UserID != userID || d.DeletedAt != nil {
			continue
		}
		if f.Status != "" && string(d.Status) != f.Status {
			continue
		}
		if f.DocumentType != "" && d.DocumentType != f.DocumentType {
			continue
		}
		matched = append(matched, *d)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *Memory) SoftDeleteDocument(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.documents[id]; ok && d.DeletedAt == nil {
		now := time.Now()
		d.DeletedAt = &now
		d.UpdatedAt = now
	}
	return nil
}

func (m *Memory) ClaimForScan(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.DeletedAt != nil || d.Status != models.StatusPendingScan {
		return false, nil
	}
	d.Status = models.StatusScanning
	d.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) SetScanResult(_ context.Context, id int64, status models.DocumentStatus, result string, scannedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.Status != models.StatusScanning {
		return false, nil
	}
	d.Status = status
	d.ScanResult = &result
	d.ScannedAt = &scannedAt
	d.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) InsertShare(_ context.Context, s *models.DocumentShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextShareID++
	s.ID = m.nextShareID
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	cp := *s
	m.shares[s.ID] = &cp
	return nil
}

func (m *Memory) GetShareByToken(_ context.Context, token string) (models.DocumentShare, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findByToken(token)
	if s == nil {
		return models.DocumentShare{}, false, nil
	}
	return *s, true, nil
}

func (m *Memory) TokenExists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByToken(token) != nil, nil
}

func (m *Memory) ListActiveShares(_ context.Context, documentID int64) ([]models.DocumentShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var shares []models.DocumentShare
	for _, s := range m.shares {
		if s.DocumentID == documentID && s.IsActive {
			shares = append(shares, *s)
		}
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].ID > shares[j].ID })
	return shares, nil
}

func (m *Memory) ConsumeShare(_ context.Context, token string, now time.Time) (models.DocumentShare, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findByToken(token)
	if s == nil || !s.UsableAt(now) {
		return models.DocumentShare{}, false, nil
	}

	s.DownloadCount++
	if s.MaxDownloads > 0 && s.DownloadCount >= s.MaxDownloads {
		s.IsActive = false
	}
	s.UpdatedAt = time.Now()
	return *s, true, nil
}

func (m *Memory) DeactivateShare(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.shares[id]; ok && s.IsActive {
		s.IsActive = false
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (m *Memory) findByToken(token string) *models.DocumentShare {
	for _, s := range m.shares {
		if s.Token == token {
			return s
		}
	}
	return nil
}

func (m *Memory) InsertAuditEvent(_ context.Context, e *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAuditID++
	e.ID = m.nextAuditID
	e.CreatedAt = time.Now()
	m.audits = append(m.audits, *e)
	return nil
}

func (m *Memory) ListAuditEvents(_ context.Context, userID string, limit, offset int) ([]models.AuditEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.AuditEvent
	for _, e := range m.audits {
		if e.UserID != nil && *e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// AuditEvents returns a snapshot of every recorded event, for tests.
func (m *Memory) AuditEvents() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditEvent, len(m.audits))
	copy(out, m.audits)
	return out
}
