// Package limiter defines interfaces and implementations for per-client push rate limiting.
package limiter

import (
	"context"
	"time"
)

// Limiter decides whether a client fingerprint may push a submission now.
type Limiter interface {
	// Allow reports whether a push is allowed and, if not, how long to wait.
	// An allowed call counts as a push.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Noop allows everything. It is the default: limiting is present but inert.
type Noop struct{}

// Allow always permits the push.
func (Noop) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }
