package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/iammusic/submissions/internal/model"
)

// SubmissionRepo implements SubmissionRepository using PostgreSQL.
type SubmissionRepo struct{ db *DB }

// NewSubmissionRepo constructs a submission repository.
func NewSubmissionRepo(db *DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

// Latest returns the newest record by created_at, or nil if there is none.
func (r *SubmissionRepo) Latest(ctx context.Context) (*model.Submission, error) {
	const q = `
SELECT id, text, ip, country, region, city, location, os, created_at
FROM submissions
ORDER BY created_at DESC, id DESC
LIMIT 1`
	var s model.Submission
	err := r.db.Pool.QueryRow(ctx, q).Scan(
		&s.ID, &s.Text, &s.IP, &s.Country, &s.Region, &s.City, &s.Location, &s.OS, &s.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}

// Append inserts d with a server-side timestamp that never goes backwards.
// Concurrent appends may still interleave; ordering is per committed row.
func (r *SubmissionRepo) Append(ctx context.Context, d model.Draft) (model.Submission, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Submission{}, fmt.Errorf("new id: %w", err)
	}

	const q = `
INSERT INTO submissions (id, text, ip, country, region, city, location, os, created_at)
SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text,
       GREATEST(clock_timestamp(), COALESCE(MAX(created_at), '-infinity'::timestamptz))
FROM submissions
RETURNING created_at`
	s := model.Submission{ID: id, Draft: d}
	if err := r.db.Pool.QueryRow(ctx, q,
		id, d.Text, d.IP, d.Country, d.Region, d.City, d.Location, d.OS,
	).Scan(&s.Timestamp); err != nil {
		return model.Submission{}, err
	}
	s.Timestamp = s.Timestamp.UTC()
	return s, nil
}

// Ping checks connectivity to the database.
func (r *SubmissionRepo) Ping(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}
