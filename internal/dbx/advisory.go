package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// AdvisoryLocker serializes work on a string key across every process
// sharing the database, using transaction-scoped PostgreSQL advisory locks.
// The lock is released when the wrapping transaction ends.
type AdvisoryLocker struct {
	db *sql.DB
}

func NewAdvisoryLocker(db *sql.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

// WithLock blocks until the lock for key is held, then runs fn with ctx.
// Waiting for the lock honours ctx, but the transaction holding it is
// begun on a context ctx cannot cancel, so the lock is only released once
// fn has returned.
func (l *AdvisoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return WithTx(context.WithoutCancel(ctx), l.db, nil, func(_ context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(ctx)
	})
}
