package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/stratum/internal/logger"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun returns the next fire time of expr after now.
func NextRun(expr string, now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: parse schedule %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// Scheduler refreshes a set of catalogs on a cron schedule.
type Scheduler struct {
	cache   *Cache
	keys    []string
	timeout time.Duration
	log     *logger.Logger
	cron    *cron.Cron
}

// NewScheduler validates expr and prepares (but does not start) the job.
func NewScheduler(cache *Cache, keys []string, expr string, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		cache:   cache,
		keys:    keys,
		timeout: time.Minute,
		log:     log.With("component", "catalog-scheduler"),
		cron:    cron.New(cron.WithParser(cronParser)),
	}
	if _, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.RefreshAll(ctx); err != nil {
			s.log.Error("scheduled catalog refresh failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("catalog: schedule %q: %w", expr, err)
	}
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop; the returned context is done once a running
// refresh has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RefreshAll refreshes every catalog independently; one failure does not
// stop the others.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, key := range s.keys {
		if _, err := s.cache.Refresh(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.Info("catalog refreshed", "catalog", key)
	}
	return errors.Join(errs...)
}
