package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/metrics"
	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeFetcher struct {
	pages   map[string]string
	failing map[string]error
	visits  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.visits = append(f.visits, url)
	if err := f.failing[url]; err != nil {
		return nil, err
	}
	return []byte(f.pages[url]), nil
}

// fakeExtractor yields one candidate per line of "title|url" content.
type fakeExtractor struct{}

func (fakeExtractor) Extract(content []byte, _ string) ([]scraper.Candidate, error) {
	var out []scraper.Candidate
	for _, line := range splitLines(string(content)) {
		var title, url string
		if _, err := fmt.Sscanf(line, "%s %s", &title, &url); err != nil {
			continue
		}
		out = append(out, scraper.Candidate{Title: title, URL: url})
	}
	return out, nil
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

type memStore struct {
	scraper.PostingStore

	known    map[string]struct{}
	knownErr error
	inserted []scraper.Posting
	nextID   int64
}

func newMemStore(urls ...string) *memStore {
	known := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		known[u] = struct{}{}
	}
	return &memStore{known: known}
}

func (s *memStore) KnownURLs(context.Context) (map[string]struct{}, error) {
	if s.knownErr != nil {
		return nil, s.knownErr
	}
	out := make(map[string]struct{}, len(s.known))
	for u := range s.known {
		out[u] = struct{}{}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, p scraper.Posting) (scraper.Posting, bool, error) {
	if _, dup := s.known[p.URL]; dup {
		return scraper.Posting{}, false, nil
	}
	s.nextID++
	p.ID = s.nextID
	s.known[p.URL] = struct{}{}
	s.inserted = append(s.inserted, p)
	return p, true, nil
}

type fakeNotifier struct {
	calls int
	limit int
	sent  int
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, limit int) (int, error) {
	n.calls++
	n.limit = limit
	return n.sent, n.err
}

func newTestRunner(t *testing.T, cfg Config, f scraper.Fetcher, store scraper.PostingStore, notifier scraper.Notifier) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, f, fakeExtractor{}, scraper.Preferences{}, store, notifier, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRunPersistsNewAndSkipsKnown(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/careers": "Engineer https://a.example/jobs/1\nAnalyst https://a.example/jobs/2",
	}}
	store := newMemStore("https://a.example/jobs/2")
	notifier := &fakeNotifier{sent: 1}

	cfg := Config{
		Targets:       []scraper.Target{{Name: "ACorp", URL: "https://a.example/careers"}},
		NotifyEnabled: true,
		MaxAlerts:     5,
	}

	summary, err := newTestRunner(t, cfg, fetcher, store, notifier).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 1, summary.TargetsProcessed)
	require.Equal(t, 2, summary.Candidates)
	require.Equal(t, 1, summary.NewPostings)
	require.Equal(t, 1, summary.AlertsSent)

	require.Len(t, store.inserted, 1)
	require.Equal(t, "https://a.example/jobs/1", store.inserted[0].URL)
	require.Equal(t, "ACorp", store.inserted[0].Company, "target name backfills the company")

	require.Equal(t, 1, notifier.calls)
	require.Equal(t, 5, notifier.limit)
}

func TestRunIsolatesTargetFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://a.example/careers": "Engineer https://a.example/jobs/1",
			"https://c.example/careers": "Engineer https://c.example/jobs/1",
		},
		failing: map[string]error{
			"https://b.example/careers": errors.New("503 service unavailable"),
		},
	}
	store := newMemStore()

	cfg := Config{Targets: []scraper.Target{
		{Name: "ACorp", URL: "https://a.example/careers"},
		{Name: "BCorp", URL: "https://b.example/careers"},
		{Name: "CCorp", URL: "https://c.example/careers"},
	}}

	summary, err := newTestRunner(t, cfg, fetcher, store, nil).Run(context.Background())
	require.NoError(t, err, "one dead target must not abort the run")
	require.Equal(t, 2, summary.TargetsProcessed)
	require.Equal(t, 1, summary.TargetsFailed)
	require.Len(t, store.inserted, 2)
	require.Equal(t, 3, len(fetcher.visits), "the failing target does not stop later ones")
}

func TestRunDedupesWithinARun(t *testing.T) {
	t.Parallel()

	// Both targets list the same URL; only one row may land.
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/careers": "Engineer https://jobs.example/shared/1",
		"https://b.example/careers": "Engineer https://jobs.example/shared/1",
	}}
	store := newMemStore()

	cfg := Config{Targets: []scraper.Target{
		{Name: "ACorp", URL: "https://a.example/careers"},
		{Name: "BCorp", URL: "https://b.example/careers"},
	}}

	summary, err := newTestRunner(t, cfg, fetcher, store, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.NewPostings)
	require.Len(t, store.inserted, 1)
}

func TestRunAbortsWhenStoreDown(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newMemStore()
	store.knownErr = errors.New("connection refused")

	cfg := Config{Targets: []scraper.Target{{Name: "ACorp", URL: "https://a.example/careers"}}}

	_, err := newTestRunner(t, cfg, fetcher, store, nil).Run(context.Background())
	require.Error(t, err)
	require.Empty(t, fetcher.visits, "nothing is fetched when the store is unreachable")
}

func TestRunAppliesPreferences(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/careers": "Senior-Engineer https://a.example/jobs/1\nInternship https://a.example/jobs/2",
	}}
	store := newMemStore()

	r, err := NewRunner(
		Config{Targets: []scraper.Target{{Name: "ACorp", URL: "https://a.example/careers"}}},
		fetcher,
		fakeExtractor{},
		scraper.Preferences{Exclusions: []string{"internship"}},
		store,
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Candidates)
	require.Equal(t, 1, summary.NewPostings)
	require.Equal(t, "https://a.example/jobs/1", store.inserted[0].URL)
}

func TestRunSkipsNotifierWhenDisabled(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	cfg := Config{
		Targets:       []scraper.Target{},
		NotifyEnabled: false,
	}

	_, err := newTestRunner(t, cfg, &fakeFetcher{}, newMemStore(), notifier).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, notifier.calls)
}

func TestRegisterExtractorOverridesFallback(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/careers": "ignored-by-site-extractor",
	}}
	store := newMemStore()

	cfg := Config{Targets: []scraper.Target{{Name: "ACorp", URL: "https://a.example/careers"}}}
	r := newTestRunner(t, cfg, fetcher, store, nil)
	r.RegisterExtractor("ACorp", staticExtractor{scraper.Candidate{
		Title: "Principal Engineer",
		URL:   "https://a.example/jobs/99",
	}})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.NewPostings)
	require.Equal(t, "https://a.example/jobs/99", store.inserted[0].URL)
}

type staticExtractor struct{ c scraper.Candidate }

func (s staticExtractor) Extract([]byte, string) ([]scraper.Candidate, error) {
	return []scraper.Candidate{s.c}, nil
}
