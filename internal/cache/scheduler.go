package cache

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "rcjcal/internal/log"
)

// Scheduler refreshes a Cache once at start and then on a cron schedule.
// Requests never trigger or wait for a refresh.
type Scheduler struct {
	cache *Cache
	cron  *cron.Cron
	spec  string
}

// NewScheduler validates spec (standard 5-field cron or descriptors such as
// "@every 1h") and prepares a scheduler for c.
func NewScheduler(c *Cache, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	logger := cronLogger{}
	return &Scheduler{
		cache: c,
		cron:  cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		spec:  spec,
	}, nil
}

// Start kicks off the initial refresh in the background and starts the
// timer. Refreshes run with ctx; cancelling it aborts in-flight fetches.
func (s *Scheduler) Start(ctx context.Context) error {
	job := func() {
		// Failures are logged by Refresh; the next tick is the retry.
		_ = s.cache.Refresh(ctx)
	}
	if _, err := s.cron.AddFunc(s.spec, job); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	go job()
	s.cron.Start()
	appLog.Info("refresh scheduler started", "schedule", s.spec)
	return nil
}

// Stop stops the timer and waits for a running scheduled refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
