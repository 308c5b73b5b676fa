// Package scheduler runs the scrape pipeline once a day at a configured
// wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Runner starts one scrape cycle when the schedule fires.
type Runner interface {
	Run(ctx context.Context) (scraper.RunSummary, error)
}

// Scheduler owns the cron instance and the single daily entry.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	logger *zap.Logger
}

// New builds a Scheduler firing daily at scheduleTime ("HH:MM", 24-hour
// local time). An unparseable time is a configuration error; the caller
// refuses to start rather than silently running at the wrong hour.
func New(scheduleTime string, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("run trigger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	spec, err := cronSpec(scheduleTime)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	return &Scheduler{
		cron:   c,
		runner: runner,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start registers the daily entry and launches the cron loop. It returns
// immediately; runs happen on cron's goroutine until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		summary, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
			return
		}
		s.logger.Info("scheduled run completed",
			zap.String("run_id", summary.RunID),
			zap.Int("new_postings", summary.NewPostings))
	})
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("cron", s.spec))
	return nil
}

// Stop halts scheduling and waits for a running entry to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronSpec converts "HH:MM" into a five-field daily cron expression.
func cronSpec(scheduleTime string) (string, error) {
	parts := strings.Split(scheduleTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("schedule time %q: want HH:MM", scheduleTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("schedule time %q: bad hour", scheduleTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("schedule time %q: bad minute", scheduleTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
