// Package cmd defines and implements the CLI commands for the career-crawler
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/config"
	"github.com/AnonArchitect/career-crawler/internal/extractor"
	collyfetcher "github.com/AnonArchitect/career-crawler/internal/fetcher/colly"
	"github.com/AnonArchitect/career-crawler/internal/logging"
	"github.com/AnonArchitect/career-crawler/internal/metrics"
	"github.com/AnonArchitect/career-crawler/internal/notifier/telegram"
	"github.com/AnonArchitect/career-crawler/internal/pipeline"
	"github.com/AnonArchitect/career-crawler/internal/scraper"
	"github.com/AnonArchitect/career-crawler/internal/storage/postgres"
)

var cfgFile string

// app bundles the long-lived services the subcommands share.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *postgres.PostingStore
	runner *pipeline.Runner
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// buildApp is a variable so tests can substitute a fake factory.
var buildApp = func(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	store, err := postgres.NewPostingStore(ctx, postgres.PostingStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:  cfg.Scraping.UserAgent,
		Timeout:    cfg.RequestTimeout(),
		MaxRetries: cfg.Scraping.MaxRetries,
		BaseDelay:  cfg.RequestDelay(),
	}, logger.Named("fetcher"))

	var notifier scraper.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.New(telegram.Config{
			Token:     cfg.Telegram.Token,
			ChatID:    cfg.Telegram.ChatID,
			SendPause: cfg.SendPause(),
		}, store, logger.Named("notifier"))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init notifier: %w", err)
		}
	}

	runner, err := pipeline.NewRunner(
		pipeline.Config{
			Targets:       cfg.Targets(),
			NotifyEnabled: cfg.Telegram.Enabled,
			MaxAlerts:     cfg.Telegram.MaxAlertsPerRun,
		},
		fetcher,
		extractor.NewLinkHeuristic(logger.Named("extractor")),
		cfg.JobPreferences(),
		store,
		notifier,
		logger.Named("pipeline"),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: store, runner: runner}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "career-crawler",
		Short: "Watches company career pages and alerts on new postings.",
		Long: `career-crawler periodically fetches the careers pages of configured
companies, extracts job postings, filters them against your preferences and
sends an alert for every posting it has not seen before.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScheduleCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "career-crawler: %v\n", err)
		os.Exit(1)
	}
}

// bootTimeout bounds service construction, mainly the first DB dial.
const bootTimeout = 30 * time.Second
