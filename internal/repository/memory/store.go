// Package memory holds an in-process submission log for tests and throwaway runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/iammusic/submissions/internal/model"
)

// Store is a mutex-guarded slice of records. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []model.Submission
	now     func() time.Time
}

// New returns an empty store using the wall clock.
func New() *Store { return NewWithClock(time.Now) }

// NewWithClock returns an empty store stamping records with now().
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Latest returns a copy of the last record, or nil.
func (s *Store) Latest(_ context.Context) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	rec := s.records[len(s.records)-1]
	return &rec, nil
}

// Append stores d stamped with max(now, latest timestamp).
func (s *Store) Append(_ context.Context, d model.Draft) (model.Submission, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Submission{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if n := len(s.records); n > 0 && ts.Before(s.records[n-1].Timestamp) {
		ts = s.records[n-1].Timestamp
	}
	rec := model.Submission{ID: id, Timestamp: ts, Draft: d}
	s.records = append(s.records, rec)
	return rec, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// All returns a snapshot of every record in insertion order.
func (s *Store) All() []model.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Submission(nil), s.records...)
}
