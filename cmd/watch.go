package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rm-hull/png-scrubber/internal"
)

// Watch scans the inbox on a schedule until ctx is cancelled.
func Watch(ctx context.Context, c internal.Config) error {
	internal.StartupInfo(c)

	watcher, err := internal.NewWatcher(c)
	if err != nil {
		return err
	}

	sched, err := internal.NewScheduler(ctx, watcher)
	if err != nil {
		return err
	}
	slog.Info("Watching inbox", "inbox", c.Watch.Inbox, "output-dir", c.OutputDir, "interval", c.Watch.Interval)

	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
