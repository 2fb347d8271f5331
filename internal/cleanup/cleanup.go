package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sitegate/internal/session"
)

// SweepResult describes a single purge run
type SweepResult struct {
	Purged   int
	Duration time.Duration
	Err      error
}

// Janitor periodically purges expired sessions from a server-side store
type Janitor struct {
	purger   session.Purger
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last SweepResult
}

// NewJanitor creates a janitor for purger running on a cron schedule
// such as "@every 10m" or "*/5 * * * *"
func NewJanitor(purger session.Purger, schedule string, logger *slog.Logger) *Janitor {
	return &Janitor{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the sweep and starts the scheduler
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("session janitor started", "schedule", j.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("session janitor stopped")
}

// Sweep purges expired sessions once
func (j *Janitor) Sweep(ctx context.Context) SweepResult {
	start := j.now()
	purged, err := j.purger.PurgeExpired(ctx, start)
	result := SweepResult{Purged: purged, Duration: time.Since(start), Err: err}

	if err != nil {
		j.logger.Error("session purge failed", "error", err)
	} else if purged > 0 {
		j.logger.Info("purged expired sessions", "count", purged, "duration", result.Duration)
	}

	j.mu.Lock()
	j.last = result
	j.mu.Unlock()

	return result
}

// LastSweep returns the result of the most recent sweep
func (j *Janitor) LastSweep() SweepResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
