package audit

import (
	"context"
	"database/sql"
	"fmt"

	"hackathon-gateway/pkg/utils"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS gateway_audit_events (
	id          UUID PRIMARY KEY,
	type        TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	path        TEXT NOT NULL DEFAULT '',
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL
)`

const indexSQL = `
CREATE INDEX IF NOT EXISTS gateway_audit_events_session_idx
	ON gateway_audit_events (session_id, created_at)`

const insertSQL = `
INSERT INTO gateway_audit_events
	(id, type, session_id, user_id, email, ip_address, reason, path, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// PostgresRepo appends events to gateway_audit_events.
// The *sql.DB is expected to use the pgx stdlib driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the table and its index if missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create audit table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create audit index: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	_, err := r.db.ExecContext(ctx, insertSQL,
		e.ID, string(e.Type), e.SessionID, e.UserID, e.Email,
		e.IPAddress, e.Reason, e.Path, metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
