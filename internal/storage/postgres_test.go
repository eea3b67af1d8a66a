package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docuvault/document-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Postgres{DB: db}, mock
}

func shareRows(s models.DocumentShare) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "token", "shared_with_email", "expires_at",
		"max_downloads", "download_count", "is_active", "created_at", "updated_at",
	}).AddRow(s.ID, s.DocumentID, s.Token, s.SharedWithEmail, s.ExpiresAt,
		s.MaxDownloads, s.DownloadCount, s.IsActive, s.CreatedAt, s.UpdatedAt)
}

func TestInsertDocumentReturnsGeneratedFields(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs("user-1", "Passport", "", "passport.pdf", "key-1.pdf",
			"application/pdf", int64(42), "passport", models.StatusPendingScan, "abc123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	doc := models.Document{
		UserID:           "user-1",
		Title:            "Passport",
		OriginalFilename: "passport.pdf",
		StorageKey:       "key-1.pdf",
		MimeType:         "application/pdf",
		FileSize:         42,
		DocumentType:     "passport",
		Status:           models.StatusPendingScan,
		Checksum:         "abc123",
	}
	require.NoError(t, p.InsertDocument(context.Background(), &doc))
	assert.Equal(t, int64(7), doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentMissingRow(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM documents WHERE id =").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, found, err := p.GetDocument(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimForScanOnlyClaimsPending(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status =")).
		WithArgs(models.StatusScanning, int64(5), models.StatusPendingScan).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := p.ClaimForScan(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim affects zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status =")).
		WithArgs(models.StatusScanning, int64(5), models.StatusPendingScan).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err = p.ClaimForScan(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetScanResultRequiresScanningState(t *testing.T) {
	p, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status =")).
		WithArgs(models.StatusClean, "OK", at, int64(5), models.StatusScanning).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := p.SetScanResult(context.Background(), 5, models.StatusClean, "OK", at)
	require.NoError(t, err)
	assert.False(t, updated, "verdict against a non-scanning document must be a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeShareGrantsAndDeactivatesInOneStatement(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	granted := models.DocumentShare{
		ID: 3, DocumentID: 1, Token: "tok", ExpiresAt: now.Add(time.Hour),
		MaxDownloads: 2, DownloadCount: 2, IsActive: false,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE document_shares")).
		WithArgs("tok", now).
		WillReturnRows(shareRows(granted))

	s, consumed, err := p.ConsumeShare(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, 2, s.DownloadCount)
	assert.False(t, s.IsActive, "reaching the budget deactivates in the same statement")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeShareRejectsWhenConditionFails(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE document_shares")).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, consumed, err := p.ConsumeShare(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateShareIsIdempotent(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_shares SET is_active = false")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, p.DeactivateShare(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
