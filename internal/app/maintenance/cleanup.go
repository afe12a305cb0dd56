// Package maintenance runs periodic housekeeping for the staff backend.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/pkg/logger"
)

const defaultCacheSpec = "@hourly"

// Cleaner coordinates background maintenance tasks, currently purging expired claim
// sessions and verification attempt counters from stores that do not expire keys natively.
type Cleaner struct {
	purgers []cache.Purger
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	cacheSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Nil purgers are skipped; a
// Cleaner without purgers schedules nothing.
func NewCleaner(purgers []cache.Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:           time.Now,
		cacheSchedule: defaultCacheSpec,
		log:           logger.WithModule("maintenance"),
	}
	for _, purger := range purgers {
		if purger != nil {
			cleaner.purgers = append(cleaner.purgers, purger)
		}
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if len(c.purgers) == 0 {
		return nil
	}

	if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cache cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled", zap.String("schedule", c.cacheSchedule), zap.Int("stores", len(c.purgers)))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	now := c.now()
	for _, purger := range c.purgers {
		removed, err := purger.PurgeExpired(ctx, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if removed > 0 {
			c.log.Debug("expired cache entries purged", zap.Int64("removed", removed))
		}
	}
	return errs
}
