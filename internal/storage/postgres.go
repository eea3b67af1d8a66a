package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Postgres holds the document, share and audit tables.
type Postgres struct {
	DB  *sql.DB
	log *logrus.Entry
}

// Connect opens the PostgreSQL pool, verifies connectivity and ensures the
// schema exists.
func Connect(connectionString string, log *logrus.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := &Postgres{DB: db, log: log.WithField("component", "postgres")}

	if err := p.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	p.log.Info("connected to PostgreSQL")
	return p, nil
}

func (p *Postgres) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		original_filename VARCHAR(255) NOT NULL,
		storage_key VARCHAR(500) NOT NULL,
		mime_type VARCHAR(255) NOT NULL,
		file_size BIGINT NOT NULL,
		document_type VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending_scan',
		checksum VARCHAR(64) NOT NULL,
		scanned_at TIMESTAMPTZ,
		scan_result TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS document_shares (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents(id),
		token VARCHAR(64) NOT NULL UNIQUE,
		shared_with_email VARCHAR(255),
		expires_at TIMESTAMPTZ NOT NULL,
		max_downloads INT NOT NULL DEFAULT 1,
		download_count INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS audits (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(255),
		user_email VARCHAR(255),
		subject_kind VARCHAR(50) NOT NULL,
		subject_id BIGINT NOT NULL,
		action VARCHAR(100) NOT NULL,
		metadata JSONB,
		ip_address VARCHAR(45),
		user_agent TEXT,
		result VARCHAR(20) NOT NULL DEFAULT 'success',
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_documents_user_status ON documents(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);
	CREATE INDEX IF NOT EXISTS idx_shares_document_id ON document_shares(document_id);
	CREATE INDEX IF NOT EXISTS idx_audits_user_id ON audits(user_id);
	CREATE INDEX IF NOT EXISTS idx_audits_action ON audits(action);
	CREATE INDEX IF NOT EXISTS idx_audits_subject ON audits(subject_kind, subject_id);
	CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);
	`

	_, err := p.DB.Exec(query)
	return err
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.DB.Close()
}
