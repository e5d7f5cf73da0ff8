// Package history records dispatched task runs into persistent storage.
//
// It subscribes to the event bus and translates task.fired events into
// run rows. Storage failures are logged and skipped; the recorder never
// applies backpressure to the dispatch path.
package history

import (
	"context"
	"time"

	"minirtos/internal/eventbus"
	"minirtos/internal/storage"
	logx "minirtos/pkg/logx"
)

type Config struct {
	Buffer       int           // subscription buffer; 0 means default
	WriteTimeout time.Duration // per-append budget; 0 means default
}

type Service struct {
	cfg   Config
	bus   eventbus.Bus
	store storage.Store
	log   logx.Logger
}

func New(cfg Config, bus eventbus.Bus, store storage.Store, log logx.Logger) *Service {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, bus: bus, store: store, log: log}
}

// Run consumes task.fired events until ctx is canceled. It returns nil
// on cancellation so restart loops treat shutdown as a clean stop.
func (s *Service) Run(ctx context.Context) error {
	if s.store == nil || s.bus == nil {
		// Nothing to record into; stay idle until shutdown.
		<-ctx.Done()
		return nil
	}

	ch, unsub := s.bus.Subscribe(s.cfg.Buffer)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if e.Type != eventbus.TypeTaskFired {
				continue
			}
			fired, ok := e.Data.(eventbus.TaskFired)
			if !ok {
				continue
			}
			s.record(ctx, e.Time, fired)
		}
	}
}

func (s *Service) record(ctx context.Context, at time.Time, fired eventbus.TaskFired) {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	err := s.store.AppendRun(wctx, storage.RunEntry{
		At:   at,
		Task: fired.Name,
		Tick: fired.Tick,
		Took: fired.Duration,
	})
	if err != nil {
		s.log.Warn("run append failed",
			logx.String("task", fired.Name),
			logx.Uint32("tick", fired.Tick),
			logx.Err(err),
		)
	}
}
