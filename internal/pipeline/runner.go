// Package pipeline wires the fetch, extract, filter and persist stages into
// a single scrape run across all configured targets.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/metrics"
	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Config tunes a run without reaching back into the global configuration.
type Config struct {
	Targets       []scraper.Target
	NotifyEnabled bool
	MaxAlerts     int
}

// Runner executes one scrape cycle: every target is fetched and parsed,
// accepted candidates are persisted, and new rows trigger alerts. Targets
// fail independently; only a store outage at the start aborts the run.
type Runner struct {
	cfg        Config
	fetcher    scraper.Fetcher
	extractors map[string]scraper.Extractor
	fallback   scraper.Extractor
	prefs      scraper.Preferences
	store      scraper.PostingStore
	notifier   scraper.Notifier
	logger     *zap.Logger
}

func NewRunner(
	cfg Config,
	fetcher scraper.Fetcher,
	fallback scraper.Extractor,
	prefs scraper.Preferences,
	store scraper.PostingStore,
	notifier scraper.Notifier,
	logger *zap.Logger,
) (*Runner, error) {
	if fetcher == nil || fallback == nil || store == nil {
		return nil, fmt.Errorf("fetcher, extractor and store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		fetcher:    fetcher,
		extractors: make(map[string]scraper.Extractor),
		fallback:   fallback,
		prefs:      prefs,
		store:      store,
		notifier:   notifier,
		logger:     logger,
	}, nil
}

// RegisterExtractor installs a site-specific extractor for the named target.
// Targets without one use the generic link heuristic.
func (r *Runner) RegisterExtractor(target string, ex scraper.Extractor) {
	r.extractors[target] = ex
}

// Run walks every target once and returns a summary. The known-URL set is
// loaded up front so repeat listings are skipped cheaply; the unique
// constraint on url remains the authority, so a concurrent writer costs a
// benign no-op insert, never a duplicate row.
func (r *Runner) Run(ctx context.Context) (scraper.RunSummary, error) {
	start := time.Now()
	summary := scraper.RunSummary{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	known, err := r.store.KnownURLs(ctx)
	if err != nil {
		return summary, fmt.Errorf("load known urls: %w", err)
	}
	logger.Info("scrape run starting",
		zap.Int("targets", len(r.cfg.Targets)),
		zap.Int("known_urls", len(known)))

	for _, target := range r.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.processTarget(ctx, logger, target, known, &summary); err != nil {
			summary.TargetsFailed++
			metrics.ObserveTargetFailure(target.Name)
			logger.Error("target failed",
				zap.String("target", target.Name),
				zap.String("url", target.URL),
				zap.Error(err))
			continue
		}
		summary.TargetsProcessed++
	}

	if r.cfg.NotifyEnabled && r.notifier != nil {
		sent, err := r.notifier.Notify(ctx, r.cfg.MaxAlerts)
		summary.AlertsSent = sent
		metrics.ObserveAlertsSent(sent)
		if err != nil {
			logger.Error("alert delivery failed", zap.Error(err))
		}
	}

	metrics.ObserveRunDuration(time.Since(start))
	logger.Info("scrape run finished",
		zap.Int("targets_ok", summary.TargetsProcessed),
		zap.Int("targets_failed", summary.TargetsFailed),
		zap.Int("candidates", summary.Candidates),
		zap.Int("new_postings", summary.NewPostings),
		zap.Int("alerts_sent", summary.AlertsSent))
	return summary, nil
}

func (r *Runner) processTarget(
	ctx context.Context,
	logger *zap.Logger,
	target scraper.Target,
	known map[string]struct{},
	summary *scraper.RunSummary,
) error {
	content, err := r.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		metrics.ObserveFetch(target.Name, "error")
		return fmt.Errorf("fetch %s: %w", target.URL, err)
	}
	metrics.ObserveFetch(target.Name, "ok")

	ex := r.fallback
	if site, ok := r.extractors[target.Name]; ok {
		ex = site
	}
	candidates, err := ex.Extract(content, target.URL)
	if err != nil {
		return fmt.Errorf("extract %s: %w", target.URL, err)
	}
	summary.Candidates += len(candidates)
	metrics.ObserveCandidates(target.Name, len(candidates))

	accepted, created := 0, 0
	for _, c := range candidates {
		if !r.prefs.Accepts(c) {
			continue
		}
		accepted++

		if _, seen := known[c.URL]; seen {
			continue
		}

		if c.Company == "" {
			c.Company = target.Name
		}
		_, ok, err := r.store.Insert(ctx, scraper.FromCandidate(c))
		if err != nil {
			// One bad row should not sink the rest of the page.
			logger.Warn("insert failed",
				zap.String("target", target.Name),
				zap.String("url", c.URL),
				zap.Error(err))
			continue
		}
		known[c.URL] = struct{}{}
		if ok {
			created++
			metrics.ObservePostingAdded(target.Name)
		}
	}
	summary.NewPostings += created

	logger.Info("target done",
		zap.String("target", target.Name),
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", accepted),
		zap.Int("new", created))
	return nil
}
