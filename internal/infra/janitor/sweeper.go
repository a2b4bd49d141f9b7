package janitor

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically removes stale files matching a glob in one directory.
type Sweeper struct {
	scheduler *gocron.Scheduler
	dir       string
	pattern   string
	interval  time.Duration
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Sweeper; Start schedules it.
func New(dir, pattern string, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		dir:       dir,
		pattern:   pattern,
		interval:  interval,
		maxAge:    maxAge,
		logger:    logger.With("component", "janitor"),
		now:       time.Now,
	}
}

// Start schedules the sweep and starts the underlying scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(func() { s.Sweep() }); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// Sweep removes matching files older than maxAge and reports how many it removed.
func (s *Sweeper) Sweep() int {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		s.logger.Error("sweep glob failed", "pattern", s.pattern, "error", err)
		return 0
	}
	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove stale file failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("stale artifacts removed", "count", removed, "dir", s.dir)
	}
	return removed
}
