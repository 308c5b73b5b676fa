package scraper

import (
	"context"
	"errors"
	"time"
)

// LinearRetryPolicy waits BaseDelay * (attempt+1) between attempts. The
// growth is deliberately gentle: the fetcher talks to career pages that
// throttle aggressive clients, so backing off linearly keeps total run time
// predictable while still easing pressure on a struggling site.
type LinearRetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ShouldRetry decides whether another attempt is worthwhile. Context
// cancellation is never retried.
func (p LinearRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the wait before the next attempt, where attempt counts
// completed attempts starting at 1.
func (p LinearRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(attempt+1)
}
