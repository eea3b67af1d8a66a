package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docuvault/document-service/internal/models"
)

// DocumentFilter narrows a listing to a status and/or category. Zero values
// mean "no filter".
type DocumentFilter struct {
	Status       string
	DocumentType string
	Limit        int
	Offset       int
}

const documentColumns = `id, user_id, title, COALESCE(description, ''), original_filename,
	storage_key, mime_type, file_size, document_type, status, checksum,
	scanned_at, scan_result, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Title,
		&d.Description,
		&d.OriginalFilename,
		&d.StorageKey,
		&d.MimeType,
		&d.FileSize,
		&d.DocumentType,
		&d.Status,
		&d.Checksum,
		&d.ScannedAt,
		&d.ScanResult,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// InsertDocument persists a new document row and fills in the generated id
// and timestamps.
func (p *Postgres) InsertDocument(ctx context.Context, d *models.Document) error {
	query := `
	INSERT INTO documents (user_id, title, description, original_filename, storage_key,
		mime_type, file_size, document_type, status, checksum)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at, updated_at
	`

	return p.DB.QueryRowContext(ctx, query,
		d.UserID,
		d.Title,
		d.Description,
		d.OriginalFilename,
		d.StorageKey,
		d.MimeType,
		d.FileSize,
		d.DocumentType,
		d.Status,
		d.Checksum,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetDocument returns a live (non-tombstoned) document by id.
func (p *Postgres) GetDocument(ctx context.Context, id int64) (models.Document, bool, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND deleted_at IS NULL`

	d, err := scanDocument(p.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, false, nil
		}
		return models.Document{}, false, err
	}
	return d, true, nil
}

// ListDocuments returns a page of the owner's live documents, newest first,
// plus the total matching count for pagination.
func (p *Postgres) ListDocuments(ctx context.Context, userID string, f DocumentFilter) ([]models.Document, int64, error) {
	where := `WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.DocumentType != "" {
		args = append(args, f.DocumentType)
		where += fmt.Sprintf(" AND document_type = $%d", len(args))
	}

	var total int64
	if err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		documentColumns, where, len(args)-1, len(args))

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

// SoftDeleteDocument sets the tombstone. The row and its audit trail persist.
func (p *Postgres) SoftDeleteDocument(ctx context.Context, id int64) error {
	query := `UPDATE documents SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	_, err := p.DB.ExecContext(ctx, query, id)
	return err
}

// ClaimForScan transitions pending_scan -> scanning. Returns false when the
// document is missing, tombstoned or already claimed, which lets duplicate
// scan dispatches fall through as no-ops.
func (p *Postgres) ClaimForScan(ctx context.Context, id int64) (bool, error) {
	query := `
	UPDATE documents SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status = $3 AND deleted_at IS NULL
	`

	res, err := p.DB.ExecContext(ctx, query, models.StatusScanning, id, models.StatusPendingScan)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetScanResult records a terminal verdict. The scanning-only guard makes
// duplicate or late reports zero-row no-ops, surfaced to the caller as
// updated == false.
func (p *Postgres) SetScanResult(ctx context.Context, id int64, status models.DocumentStatus, result string, scannedAt time.Time) (bool, error) {
	query := `
	UPDATE documents SET status = $1, scan_result = $2, scanned_at = $3, updated_at = NOW()
	WHERE id = $4 AND status = $5
	`

	res, err := p.DB.ExecContext(ctx, query, status, result, scannedAt, id, models.StatusScanning)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
