package storage

import (
	"context"
	"encoding/json"

	"github.com/docuvault/document-service/internal/models"
)

// InsertAuditEvent appends one row to the compliance ledger. Rows are never
// updated or deleted by the application.
func (p *Postgres) InsertAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	var metadata []byte
	if e.Metadata != nil {
		var err error
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
	INSERT INTO audits (user_id, user_email, subject_kind, subject_id, action, metadata, ip_address, user_agent, result, error_message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at
	`

	return p.DB.QueryRowContext(ctx, query,
		e.UserID,
		e.UserEmail,
		e.Subject.Kind,
		e.Subject.ID,
		e.Action,
		metadata,
		e.IPAddress,
		e.UserAgent,
		e.Result,
		e.ErrorMessage,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListAuditEvents returns a page of the user's audit trail, newest first.
func (p *Postgres) ListAuditEvents(ctx context.Context, userID string, limit, offset int) ([]models.AuditEvent, int64, error) {
	var total int64
	if err := p.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audits WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
	SELECT id, user_id, user_email, subject_kind, subject_id, action, metadata,
		COALESCE(ip_address, ''), COALESCE(user_agent, ''), result, error_message, created_at
	FROM audits WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
	`

	rows, err := p.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var metadata []byte
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.UserEmail,
			&e.Subject.Kind,
			&e.Subject.ID,
			&e.Action,
			&metadata,
			&e.IPAddress,
			&e.UserAgent,
			&e.Result,
			&e.ErrorMessage,
			&e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, 0, err
			}
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
