package scraper

import (
	"context"
	"time"
)

// Pauser abstracts how components wait between requests: the fetcher's
// per-site politeness delay and the notifier's inter-message pacing both go
// through it, so tests can substitute a no-op.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser sleeps on a timer but returns early when the context finishes.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done, whichever comes first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NopPauser skips all delays. For tests.
type NopPauser struct{}

// Pause returns immediately.
func (NopPauser) Pause(context.Context, time.Duration) {}
