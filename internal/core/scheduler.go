package core

// scheduler.go runs the inbox sweep on a cron schedule.
//
// A sweep that is still running when the next tick fires is skipped rather
// than overlapped, so a slow batch never imports the same file twice. The
// scheduler logs failures but never stops on them.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultInboxSchedule sweeps every five minutes.
const DefaultInboxSchedule = "@every 5m"

// InboxConfig holds configuration for the inbox scheduler.
type InboxConfig struct {
	Dir      string // Directory to sweep (required)
	Schedule string // Cron spec or @every descriptor (default: @every 5m)
}

// StartInboxScheduler schedules SweepInbox for cfg.Dir and starts the cron
// runner. One sweep starts immediately. Cancelling ctx stops the runner; the
// caller may also Stop the returned cron and wait on its context.
func (s *Service) StartInboxScheduler(ctx context.Context, cfg InboxConfig) (*cron.Cron, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox scheduler: dir is required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultInboxSchedule
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(cron.WithLogger(logger))

	job := cron.NewChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	).Then(cron.FuncJob(func() { s.runSweepJob(ctx, cfg.Dir) }))

	if _, err := c.AddJob(cfg.Schedule, job); err != nil {
		return nil, fmt.Errorf("inbox scheduler: bad schedule %q: %w", cfg.Schedule, err)
	}

	slog.Info("inbox scheduler started", "dir", cfg.Dir, "schedule", cfg.Schedule)

	go job.Run()
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		slog.Info("inbox scheduler stopped")
	}()

	return c, nil
}
