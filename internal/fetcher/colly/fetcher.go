// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Config controls collector behavior and the retry/politeness policy.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// Fetcher fetches one page at a time through a Colly collector. Each call
// retries transport failures and non-2xx responses up to MaxRetries attempts
// with linearly growing backoff, and pauses BaseDelay after a success so the
// target site is never hit back-to-back.
type Fetcher struct {
	cfg           Config
	policy        scraper.LinearRetryPolicy
	pauser        scraper.Pauser
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg: cfg,
		policy: scraper.LinearRetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.BaseDelay,
		},
		pauser:        scraper.TimerPauser{},
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch retrieves url, retrying until the policy gives up. The returned
// error means the target should be skipped for this run; no partial content
// is ever returned alongside it.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		body, err := f.visit(ctx, url)
		if err == nil {
			// Politeness delay applies after a success too.
			f.pauser.Pause(ctx, f.cfg.BaseDelay)
			return body, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxRetries),
			zap.Error(err))

		if !f.policy.ShouldRetry(err, attempt) {
			break
		}
		f.pauser.Pause(ctx, f.policy.Backoff(attempt))
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

// visit executes a single HTTP GET using a cloned collector.
func (f *Fetcher) visit(ctx context.Context, url string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
