// Package sqlite contains a SQLite implementation of the submission log for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	_ "modernc.org/sqlite"

	"github.com/iammusic/submissions/internal/migrate"
	"github.com/iammusic/submissions/internal/model"
)

// SubmissionRepo implements SubmissionRepository on a single SQLite file.
type SubmissionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates (if needed) and migrates the database at path.
func Open(ctx context.Context, path string) (*SubmissionRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// immediate transactions serialize appends instead of failing on lock upgrade
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Up(ctx, db, migrate.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SubmissionRepo{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *SubmissionRepo) Close() error { return r.db.Close() }

// Latest returns the newest record, or nil if the log is empty.
func (r *SubmissionRepo) Latest(ctx context.Context) (*model.Submission, error) {
	const q = `
SELECT id, text, ip, country, region, city, location, os, created_at
FROM submissions
ORDER BY created_at DESC, rowid DESC
LIMIT 1`
	var (
		s  model.Submission
		ns int64
	)
	err := r.db.QueryRowContext(ctx, q).Scan(
		&s.ID, &s.Text, &s.IP, &s.Country, &s.Region, &s.City, &s.Location, &s.OS, &ns,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Timestamp = time.Unix(0, ns).UTC()
	return &s, nil
}

// Append inserts d stamped with max(now, latest timestamp).
func (r *SubmissionRepo) Append(ctx context.Context, d model.Draft) (s model.Submission, err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Submission{}, fmt.Errorf("new id: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Submission{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = e
		}
	}()

	var last sql.NullInt64
	if err = tx.QueryRowContext(ctx, `SELECT MAX(created_at) FROM submissions`).Scan(&last); err != nil {
		return model.Submission{}, err
	}
	ts := r.now().UTC()
	if last.Valid && ts.UnixNano() < last.Int64 {
		ts = time.Unix(0, last.Int64).UTC()
	}

	const ins = `
INSERT INTO submissions (id, text, ip, country, region, city, location, os, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, ins,
		id.String(), d.Text, d.IP, d.Country, d.Region, d.City, d.Location, d.OS, ts.UnixNano(),
	); err != nil {
		return model.Submission{}, err
	}
	return model.Submission{ID: id, Timestamp: ts, Draft: d}, nil
}

// Ping checks the database handle.
func (r *SubmissionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Count returns the number of stored records.
func (r *SubmissionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}
