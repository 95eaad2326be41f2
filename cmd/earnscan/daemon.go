package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/notify"
)

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the earnings screen on a daily schedule",
		Long: `Run continuously, executing the earnings screen at the configured time
on NYSE market days and pushing the results over ntfy when enabled. The
last completed date is tracked in a state file so a restart never
re-runs the same day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

// RunTracker tracks the last date a scheduled screen completed.
type RunTracker struct {
	stateFile string
}

func NewRunTracker(stateFile string) *RunTracker {
	return &RunTracker{stateFile: stateFile}
}

// LastRunDate reads the last completed date from the state file.
func (t *RunTracker) LastRunDate() string {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLastRunDate writes the date to the state file.
func (t *RunTracker) SetLastRunDate(date string) error {
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(t.stateFile, []byte(date+"\n"), 0600)
}

// AlreadyRan checks if the given date already completed.
func (t *RunTracker) AlreadyRan(date string) bool {
	return t.LastRunDate() == date
}

func runDaemon(ctx context.Context) error {
	scheduler := NewScheduler(cfg.Daemon.ScheduleHour, cfg.Daemon.ScheduleMinute, cfg.Daemon.Timezone)
	tracker := NewRunTracker(cfg.Daemon.StateFile)
	notifier := notify.New(cfg.Notify, logger)

	logger.Info("daemon started",
		zap.String("schedule", fmt.Sprintf("%02d:%02d %s", cfg.Daemon.ScheduleHour, cfg.Daemon.ScheduleMinute, cfg.Daemon.Timezone)),
		zap.String("stateFile", cfg.Daemon.StateFile),
		zap.Bool("runOnStartup", cfg.Daemon.RunOnStartup),
	)

	if cfg.Daemon.RunOnStartup {
		logger.Info("checking for missed run on startup")
		if shouldRun(scheduler, tracker, logger) {
			runScheduledScreen(ctx, scheduler, tracker, notifier)
		}
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if shouldRun(scheduler, tracker, logger) {
				runScheduledScreen(ctx, scheduler, tracker, notifier)
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return nil
		}
	}
}

// shouldRun checks if conditions are met for triggering a screen
func shouldRun(scheduler *Scheduler, tracker *RunTracker, logger *zap.Logger) bool {
	today := scheduler.TodayDate()

	if tracker.AlreadyRan(today) {
		return false
	}

	if !scheduler.IsMarketDay(today) {
		logger.Debug("not a market day", zap.String("date", today))
		return false
	}

	if !scheduler.IsScheduledTime() {
		return false
	}

	logger.Info("screen conditions met",
		zap.String("date", today),
		zap.String("time", time.Now().In(scheduler.Location()).Format("15:04:05")),
	)

	return true
}

// runScheduledScreen executes the screen, notifies, and updates the tracker
func runScheduledScreen(ctx context.Context, scheduler *Scheduler, tracker *RunTracker, notifier notify.Notifier) {
	today := scheduler.TodayDate()

	logger.Info("starting scheduled screen", zap.String("date", today))
	start := time.Now()

	result, err := runEarningsScreen(ctx, cfg, logger)
	if err != nil {
		logger.Error("scheduled screen failed", zap.Error(err), zap.String("date", today))
		if nerr := notifier.SendFailure(ctx, today, err); nerr != nil {
			logger.Warn("failure notification not sent", zap.Error(nerr))
		}
		return
	}

	duration := time.Since(start)
	logger.Info("scheduled screen complete",
		zap.String("date", today),
		zap.Int("passed", result.Passed),
		zap.Duration("duration", duration),
	)

	if err := notifier.SendResults(ctx, result, today, duration); err != nil {
		logger.Warn("result notification not sent", zap.Error(err))
	}

	// Update tracker to prevent a same-day re-run
	if err := tracker.SetLastRunDate(today); err != nil {
		logger.Error("failed to update tracker", zap.Error(err))
	}
}
