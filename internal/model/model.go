// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SubmissionInput is the untrusted per-request payload. A nil field was not provided.
type SubmissionInput struct {
	Text     *string `json:"text"`
	IP       *string `json:"ip"`
	Country  *string `json:"country"`
	Region   *string `json:"region"`
	City     *string `json:"city"`
	Location *string `json:"location"`
	OS       *string `json:"os"`
}

// Draft is a validated submission waiting to be appended.
// Optional fields are nil when absent and serialize as null, never omitted.
type Draft struct {
	Text     string  `json:"text"`
	IP       *string `json:"ip"`
	Country  *string `json:"country"`
	Region   *string `json:"region"`
	City     *string `json:"city"`
	Location *string `json:"location"`
	OS       *string `json:"os"`
}

// Submission is a persisted log record. Immutable once appended.
type Submission struct {
	ID        uuid.UUID `json:"id"`        // assigned by the store
	Timestamp time.Time `json:"timestamp"` // assigned by the store at append time
	Draft
}

// Outcome is the terminal state of one ingestion request.
type Outcome string

const (
	OutcomeRejected   Outcome = "REJECTED_VALIDATION"
	OutcomeRateLimit  Outcome = "RATE_LIMITED"
	OutcomeSuppressed Outcome = "SUPPRESSED_DUPLICATE"
	OutcomeAccepted   Outcome = "ACCEPTED"
	OutcomeInternal   Outcome = "INTERNAL_FAILURE"
)

// Result reports what happened to an ingested submission.
type Result struct {
	Outcome Outcome
	Saved   bool
	Record  *Submission // set only when Outcome == OutcomeAccepted
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// EqualOptional compares two optional values; absent equals only absent.
func EqualOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
