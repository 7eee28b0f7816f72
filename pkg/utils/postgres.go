package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditDBOptions sizes the audit store connection. The gateway only appends
// rows and creates its table at boot, so the pool stays small.
type AuditDBOptions struct {
	MaxConns    int
	PingTimeout time.Duration
}

const (
	defaultAuditConns       = 4
	defaultAuditPingTimeout = 3 * time.Second
	auditConnIdleTime       = 2 * time.Minute
)

func (o AuditDBOptions) resolved() AuditDBOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = defaultAuditConns
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultAuditPingTimeout
	}
	return o
}

// OpenPostgres opens the audit database through driverName ("pgx") and
// fails unless it answers a ping. The dsn carries the password; never log it.
func OpenPostgres(ctx context.Context, driverName, dsn string, opts AuditDBOptions) (*sql.DB, error) {
	opts = opts.resolved()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxConns)
	db.SetMaxIdleConns(opts.MaxConns)
	db.SetConnMaxIdleTime(auditConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit db unreachable: %w", err)
	}
	return db, nil
}

// InTx runs fn in one transaction and commits only if fn succeeds.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
