package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/docuvault/document-service/internal/models"
)

const shareColumns = `id, document_id, token, shared_with_email, expires_at,
	max_downloads, download_count, is_active, created_at, updated_at`

func scanShare(row interface{ Scan(...any) error }) (models.DocumentShare, error) {
	var s models.DocumentShare
	err := row.Scan(
		&s.ID,
		&s.DocumentID,
		&s.Token,
		&s.SharedWithEmail,
		&s.ExpiresAt,
		&s.MaxDownloads,
		&s.DownloadCount,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// InsertShare persists a new sharing link and fills in the generated id and
// timestamps.
func (p *Postgres) InsertShare(ctx context.Context, s *models.DocumentShare) error {
	query := `
	INSERT INTO document_shares (document_id, token, shared_with_email, expires_at, max_downloads, download_count, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, updated_at
	`

	return p.DB.QueryRowContext(ctx, query,
		s.DocumentID,
		s.Token,
		s.SharedWithEmail,
		s.ExpiresAt,
		s.MaxDownloads,
		s.DownloadCount,
		s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetShareByToken looks a link up by its public token.
func (p *Postgres) GetShareByToken(ctx context.Context, token string) (models.DocumentShare, bool, error) {
	query := `SELECT ` + shareColumns + ` FROM document_shares WHERE token = $1`

	s, err := scanShare(p.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentShare{}, false, nil
		}
		return models.DocumentShare{}, false, err
	}
	return s, true, nil
}

// TokenExists reports whether a token is already taken. Collisions are a
// defensive formality given 256 bits of randomness.
func (p *Postgres) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := p.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM document_shares WHERE token = $1)`, token).Scan(&exists)
	return exists, err
}

// ListActiveShares returns the active links of one document.
func (p *Postgres) ListActiveShares(ctx context.Context, documentID int64) ([]models.DocumentShare, error) {
	query := `SELECT ` + shareColumns + ` FROM document_shares
	WHERE document_id = $1 AND is_active = true ORDER BY created_at DESC, id DESC`

	rows, err := p.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []models.DocumentShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

// ConsumeShare is the single atomic grant operation: it increments the
// download counter iff the link is active, unexpired and under budget, and
// deactivates the link in the same statement when the increment exhausts the
// budget. A read-check-then-write sequence would over-grant under concurrent
// requests; the conditional UPDATE serializes on the row instead. Returns
// consumed == false when the condition did not hold (caller classifies why).
func (p *Postgres) ConsumeShare(ctx context.Context, token string, now time.Time) (models.DocumentShare, bool, error) {
	query := `
	UPDATE document_shares
	SET download_count = download_count + 1,
	    is_active = CASE
	        WHEN max_downloads > 0 AND download_count + 1 >= max_downloads THEN false
	        ELSE is_active
	    END,
	    updated_at = NOW()
	WHERE token = $1
	  AND is_active = true
	  AND expires_at > $2
	  AND (max_downloads <= 0 OR download_count < max_downloads)
	RETURNING ` + shareColumns

	s, err := scanShare(p.DB.QueryRowContext(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentShare{}, false, nil
		}
		return models.DocumentShare{}, false, err
	}
	return s, true, nil
}

// DeactivateShare retires a link. Already-inactive links are zero-row no-ops.
func (p *Postgres) DeactivateShare(ctx context.Context, id int64) error {
	query := `UPDATE document_shares SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`
	_, err := p.DB.ExecContext(ctx, query, id)
	return err
}
