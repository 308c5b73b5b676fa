package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapeCmd creates the 'scrape' subcommand: one full pipeline cycle and
// exit. Suited to external schedulers like systemd timers.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape cycle and exits",
		RunE:  runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, bootTimeout)
	a, err := buildApp(bootCtx)
	cancel()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("scrape finished",
		zap.String("run_id", summary.RunID),
		zap.Int("targets_ok", summary.TargetsProcessed),
		zap.Int("targets_failed", summary.TargetsFailed),
		zap.Int("new_postings", summary.NewPostings),
		zap.Int("alerts_sent", summary.AlertsSent))
	return nil
}
