package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by store mutations that reference a missing posting.
var ErrNotFound = errors.New("posting not found")

// Fetcher retrieves the raw content of one page under the configured
// retry/backoff/politeness policy. An error means all attempts were exhausted
// and the caller should skip the target for this run.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns raw page content into candidate postings. Implementations
// are per-site capabilities; an empty result is a normal outcome, not an
// error.
type Extractor interface {
	Extract(content []byte, baseURL string) ([]Candidate, error)
}

// PostingStore is the dedupe authority and durable table of postings keyed by
// URL.
type PostingStore interface {
	// KnownURLs returns the full stored URL set. Loaded once per run as a
	// cost-saving pre-check; the unique constraint remains the authority.
	KnownURLs(ctx context.Context) (map[string]struct{}, error)

	// Insert persists p if its URL is absent, stamping ScrapedAt. The
	// returned bool is false when the URL already existed, including when a
	// concurrent writer won the race; that case is never an error.
	Insert(ctx context.Context, p Posting) (Posting, bool, error)

	// Unnotified returns postings with notified, applied and ignored all
	// false, newest ScrapedAt first.
	Unnotified(ctx context.Context) ([]Posting, error)

	// MarkNotified flips notified to true. Returns ErrNotFound for an
	// unknown id. The core never flips it back.
	MarkNotified(ctx context.Context, id int64) error

	// UpdateStatus sets applied and/or ignored, enforcing their mutual
	// exclusion. Returns ErrNotFound for an unknown id.
	UpdateStatus(ctx context.Context, id int64, applied, ignored *bool) error

	// ListByStatus serves the dashboard views.
	ListByStatus(ctx context.Context, view StatusView) ([]Posting, error)
}

// Notifier dispatches alerts for unnotified postings, at most limit per run,
// and reports how many were delivered and marked.
type Notifier interface {
	Notify(ctx context.Context, limit int) (int, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
