// Package service contains the submission ingestion service.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/limiter"
	"github.com/iammusic/submissions/internal/model"
	"github.com/iammusic/submissions/internal/notify"
	"github.com/iammusic/submissions/internal/repository"
	"github.com/iammusic/submissions/internal/validate"
)

// Defaults applied by NewSubmissionService for zero options.
const (
	DefaultDedupWindow  = 30 * time.Second
	DefaultStoreTimeout = 10 * time.Second
)

// SubmitRequest is one ingestion attempt.
type SubmitRequest struct {
	Input       model.SubmissionInput
	Fingerprint string // limiter key; see fingerprint.FromRequest
}

// SubmissionService ingests anonymous text submissions.
type SubmissionService interface {
	// Submit sanitizes, validates, deduplicates and appends a submission.
	// Validation failures return errs.ErrEmptyText/ErrTextTooLong; storage
	// failures wrap errs.ErrInternal.
	Submit(ctx context.Context, req SubmitRequest) (model.Result, error)
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	DedupWindow  time.Duration
	StoreTimeout time.Duration
	Limiter      limiter.Limiter
	Publisher    notify.Publisher
	Now          func() time.Time
}

type SubmissionServiceImpl struct {
	repo         repository.SubmissionRepository
	lim          limiter.Limiter
	pub          notify.Publisher
	window       time.Duration
	storeTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewSubmissionService constructs SubmissionService with defaults for missing options.
func NewSubmissionService(repo repository.SubmissionRepository, log *zap.Logger, opts Options) *SubmissionServiceImpl {
	s := &SubmissionServiceImpl{
		repo:         repo,
		lim:          opts.Limiter,
		pub:          opts.Publisher,
		window:       opts.DedupWindow,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		log:          log,
	}
	if s.lim == nil {
		s.lim = limiter.Noop{}
	}
	if s.pub == nil {
		s.pub = notify.Noop{}
	}
	if s.window <= 0 {
		s.window = DefaultDedupWindow
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = DefaultStoreTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Submit runs the pipeline. Only the append path fails the request;
// limiter and duplicate-read faults fall back to letting the push through.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, req SubmitRequest) (model.Result, error) {
	draft, err := validate.Validate(validate.Sanitize(req.Input))
	if err != nil {
		s.log.Debug("submission rejected", zap.Error(err))
		return model.Result{Outcome: model.OutcomeRejected}, err
	}

	allowed, retry, err := s.lim.Allow(ctx, req.Fingerprint)
	switch {
	case err != nil:
		s.log.Warn("rate limit check failed, allowing", zap.Error(err))
	case !allowed:
		return model.Result{Outcome: model.OutcomeRateLimit}, &errs.RetryError{After: retry}
	}

	if s.isDuplicate(ctx, draft) {
		s.log.Info("duplicate entry detected, not saved")
		return model.Result{Outcome: model.OutcomeSuppressed, Saved: false}, nil
	}

	rec, err := s.append(ctx, draft)
	if err != nil {
		s.log.Error("append submission", zap.Error(err))
		return model.Result{Outcome: model.OutcomeInternal}, fmt.Errorf("%w: append: %v", errs.ErrInternal, err)
	}
	s.log.Info("submission saved", zap.String("id", rec.ID.String()))

	if err := s.pub.Publish(ctx, rec); err != nil {
		s.log.Warn("publish accepted submission", zap.String("id", rec.ID.String()), zap.Error(err))
	}
	return model.Result{Outcome: model.OutcomeAccepted, Saved: true, Record: &rec}, nil
}

func (s *SubmissionServiceImpl) isDuplicate(ctx context.Context, draft model.Draft) bool {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	latest, err := s.repo.Latest(ctx)
	if err != nil {
		s.log.Warn("duplicate check failed, treating as new", zap.Error(err))
		return false
	}
	return IsDuplicate(s.now(), draft, latest, s.window)
}

func (s *SubmissionServiceImpl) append(ctx context.Context, draft model.Draft) (model.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	rec, err := s.repo.Append(ctx, draft)
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Submission{}, fmt.Errorf("store timeout after %s: %w", s.storeTimeout, err)
	}
	return rec, err
}
