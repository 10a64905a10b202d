// Package notify fans accepted submissions out to downstream consumers.
package notify

import (
	"context"

	"github.com/iammusic/submissions/internal/model"
)

// Publisher announces an accepted record. Failures never affect ingestion.
type Publisher interface {
	Publish(ctx context.Context, rec model.Submission) error
	Close() error
}

// Noop drops every record.
type Noop struct{}

func (Noop) Publish(context.Context, model.Submission) error { return nil }
func (Noop) Close() error                                   { return nil }
