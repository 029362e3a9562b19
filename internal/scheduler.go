package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/lmittmann/tint"
)

// Watcher strips PNGs dropped into an inbox directory. Files that already
// have an output are skipped; files that failed are retried only once they
// change on disk.
type Watcher struct {
	cfg    Config
	mu     sync.Mutex
	failed map[string]time.Time
}

func NewWatcher(c Config) (*Watcher, error) {
	if c.Watch.Inbox == "" {
		return nil, fmt.Errorf("inbox directory not set")
	}
	if err := os.MkdirAll(c.Watch.Inbox, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox: %w", err)
	}
	return &Watcher{cfg: c, failed: make(map[string]time.Time)}, nil
}

// NewScheduler runs one scan straight away, then repeats it every
// configured interval. Scans never overlap.
func NewScheduler(ctx context.Context, w *Watcher) (gocron.Scheduler, error) {
	if _, err := w.Scan(ctx); err != nil {
		return nil, fmt.Errorf("initial run of job failed: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.cfg.Watch.Interval),
		gocron.NewTask(func() {
			if _, err := w.Scan(ctx); err != nil {
				slog.Error("Inbox scan failed", tint.Err(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

// Scan processes pending inbox files. It returns a nil report when there
// was nothing to do.
func (w *Watcher) Scan(ctx context.Context) (*Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.pending()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	opts := w.cfg.Options()
	opts.KeepNames = true // outputs are matched back to inbox files by name

	proc, err := NewProcessor(pending, opts)
	if err != nil {
		return nil, err
	}

	report := proc.Run(ctx)
	for _, res := range report.Failed {
		if info, err := os.Stat(res.Input); err == nil {
			w.failed[res.Input] = info.ModTime()
		}
	}
	for _, res := range report.Processed {
		delete(w.failed, res.Input)
	}

	slog.Info("Inbox scan complete", "summary", report.Summary())
	return report, nil
}

func (w *Watcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Watch.Inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !SupportedExtension(entry.Name()) {
			continue
		}
		path, err := filepath.Abs(filepath.Join(w.cfg.Watch.Inbox, entry.Name()))
		if err != nil {
			return nil, err
		}

		exists, err := FileExists(filepath.Join(w.cfg.OutputDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		if modTime, ok := w.failed[path]; ok {
			info, err := entry.Info()
			if err == nil && info.ModTime().Equal(modTime) {
				continue
			}
		}
		files = append(files, path)
	}
	return files, nil
}

// FileExists checks if a file exists and is not a directory.
func FileExists(filename string) (bool, error) {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
