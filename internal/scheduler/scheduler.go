package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Pruner removes recent-location entries created before cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler periodically applies the age retention of the recent-locations log.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	maxAge    time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new Scheduler.
func New(pruner Pruner, interval, maxAge time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pruner:    pruner,
		maxAge:    maxAge,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
		now:       time.Now,
	}
}

// Start schedules the prune job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if s.maxAge <= 0 {
		s.logger.Info("no max age configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes entries older than the configured max age.
func (s *Scheduler) RunOnce(ctx context.Context) {
	cutoff := s.now().Add(-s.maxAge)

	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("prune failed", "cutoff", cutoff, "error", err)
		return
	}
	s.logger.Info("pruned recent locations", "removed", n, "cutoff", cutoff)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
