package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter allowing one push per pause per key.
// It is shared by every replica pointing at the same database.
type PG struct {
	pool  pgxQuerier
	pause time.Duration
	now   func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, pause time.Duration) *PG {
	return NewPGWithQuerier(pool, pause)
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter.
func NewPGWithQuerier(q pgxQuerier, pause time.Duration) *PG {
	return &PG{pool: q, pause: pause, now: time.Now}
}

// Allow records a push for key unless the previous one is younger than the pause.
func (l *PG) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const q = `
INSERT INTO push_limiter (fingerprint, last_push_at)
VALUES ($1, now())
ON CONFLICT (fingerprint) DO UPDATE
SET last_push_at = now()
WHERE push_limiter.last_push_at <= now() - $2::interval
RETURNING last_push_at`
	var pushedAt time.Time
	err := l.pool.QueryRow(ctx, q, key, l.pause).Scan(&pushedAt)
	switch {
	case err == nil:
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		// conflict with a recent push: nothing was updated
	default:
		return false, 0, err
	}

	const sel = `SELECT last_push_at FROM push_limiter WHERE fingerprint=$1`
	var last time.Time
	if err := l.pool.QueryRow(ctx, sel, key).Scan(&last); err != nil {
		return false, 0, err
	}
	wait := l.pause - l.now().Sub(last)
	if wait <= 0 {
		wait = time.Second
	}
	return false, wait, nil
}

// Prune deletes rows older than the pause; they no longer affect decisions.
func (l *PG) Prune(ctx context.Context) error {
	const q = `DELETE FROM push_limiter WHERE last_push_at < now() - $1::interval`
	_, err := l.pool.Exec(ctx, q, l.pause)
	return err
}
