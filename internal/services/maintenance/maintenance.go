// Package maintenance periodically prunes old run history.
package maintenance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"minirtos/internal/storage"
	logx "minirtos/pkg/logx"
)

const (
	DefaultSchedule  = "@hourly"
	DefaultRetention = 7 * 24 * time.Hour
)

type Config struct {
	Schedule  string        // cron spec; empty means DefaultSchedule
	Retention time.Duration // keep runs newer than this; 0 means DefaultRetention
}

type Service struct {
	cfg   Config
	store storage.Store
	log   logx.Logger
}

func New(cfg Config, store storage.Store, log logx.Logger) *Service {
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, log: log}
}

// Run schedules periodic pruning until ctx is canceled. With no store
// configured it idles so callers don't need a special case.
func (s *Service) Run(ctx context.Context) error {
	if s.store == nil {
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.prune(ctx) }); err != nil {
		return errors.New("invalid maintenance schedule: " + s.cfg.Schedule)
	}
	c.Start()
	defer func() {
		stopCtx := c.Stop() // waits for a running prune to finish
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	return nil
}

// Prune removes entries older than the retention window. Exposed so the
// daemon can run an initial prune at startup.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.cfg.Retention)
	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.store.PruneBefore(pctx, cutoff)
}

func (s *Service) prune(ctx context.Context) {
	removed, err := s.Prune(ctx)
	if err != nil {
		s.log.Warn("history prune failed", logx.Err(err))
		return
	}
	if removed > 0 {
		s.log.Debug("history pruned",
			logx.Int64("removed", removed),
			logx.Duration("retention", s.cfg.Retention),
		)
	}
}
