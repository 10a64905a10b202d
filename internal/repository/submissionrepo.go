// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/iammusic/submissions/internal/model"
)

// SubmissionRepository is the append-only submission log.
type SubmissionRepository interface {
	// Latest returns the most recently appended record, or nil when the log is empty.
	Latest(ctx context.Context) (*model.Submission, error)

	// Append stores d, assigning its ID and a timestamp no earlier than the latest record's.
	Append(ctx context.Context, d model.Draft) (model.Submission, error)

	// Ping checks that the log is reachable.
	Ping(ctx context.Context) error
}
