package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AnonArchitect/career-crawler/internal/scheduler"
)

// newScheduleCmd creates the 'schedule' subcommand: the long-running service
// mode. A daily scrape fires at scraping.schedule_time while the HTTP API
// serves status reads and manual triggers.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Runs the daily scrape schedule and the HTTP API",
		RunE:  runScheduleCommand,
	}
}

func runScheduleCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, bootTimeout)
	a, err := buildApp(bootCtx)
	cancel()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := scheduler.New(a.cfg.Scraping.ScheduleTime, a.runner, a.logger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	return serveHTTP(ctx, a)
}
