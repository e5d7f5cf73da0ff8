// Package app wires the daemon: timebase, dispatcher, queues, built-in
// actions, history and maintenance, all under one supervisor.
package app

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"minirtos/internal/config"
	"minirtos/internal/eventbus"
	"minirtos/internal/queue"
	"minirtos/internal/runtime/supervisor"
	"minirtos/internal/sched"
	"minirtos/internal/services/history"
	"minirtos/internal/services/maintenance"
	"minirtos/internal/storage"
	"minirtos/internal/tick"
	logx "minirtos/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store storage.Store

	clock   *tick.Clock
	quantum time.Duration
	sched   *sched.Scheduler
	queues  map[string]*queue.Queue
	tasks   map[string]sched.Handle

	hist  *history.Service
	maint *maintenance.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	quantum, err := config.Duration("tick.quantum", cfg.Tick.Quantum, tick.DefaultQuantum)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	clock := &tick.Clock{}
	dispatcher := sched.New(clock.Now)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		clock:   clock,
		quantum: quantum,
		sched:   dispatcher,
		queues:  map[string]*queue.Queue{},
		tasks:   map[string]sched.Handle{},
	}

	if err := a.buildQueues(cfg.Queues); err != nil {
		logSvc.Close()
		return nil, err
	}
	if err := a.registerTasks(cfg.Scheduler.Tasks); err != nil {
		logSvc.Close()
		return nil, err
	}

	if store != nil {
		a.hist = history.New(history.Config{}, bus, store,
			log.With(logx.String("comp", "history")))

		retention, err := config.Duration(
			"maintenance.retention", cfg.Maintenance.Retention, maintenance.DefaultRetention)
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		a.maint = maintenance.New(maintenance.Config{
			Schedule:  cfg.Maintenance.Schedule,
			Retention: retention,
		}, store, log.With(logx.String("comp", "maintenance")))
	}

	return a, nil
}

func (a *App) buildQueues(qcs []config.QueueConfig) error {
	for _, qc := range qcs {
		capacity := qc.Capacity
		if capacity > queue.MaxElements {
			a.log.Warn("queue capacity reduced",
				logx.String("queue", qc.Name),
				logx.Int("requested", qc.Capacity),
				logx.Int("max", queue.MaxElements),
			)
			capacity = queue.MaxElements
		}
		buf := make([]byte, qc.ElementSize*capacity)
		q, err := queue.New(buf, qc.ElementSize, capacity)
		if err != nil {
			return fmt.Errorf("queue %q: %w", qc.Name, err)
		}
		a.queues[qc.Name] = q
	}
	return nil
}

func (a *App) registerTasks(tcs []config.TaskConfig) error {
	for _, tc := range tcs {
		deps := actionDeps{
			log:    a.log.With(logx.String("task", tc.Name)),
			bus:    a.bus,
			now:    a.clock.Now,
			queues: a.queues,
			q:      a.queues[tc.Queue],
		}
		fn, err := buildAction(tc.Action, deps)
		if err != nil {
			return fmt.Errorf("task %q: %w", tc.Name, err)
		}

		// Every dispatch is timed and announced on the bus; the history
		// recorder turns these into persisted run rows. A callback that
		// outlasts its own period additionally raises an overrun event.
		name := tc.Name
		period := tc.Period
		if period < 1 || period > sched.MaxInterval {
			period = sched.DefaultInterval
		}
		budget := time.Duration(period) * a.quantum
		wrapped := func() {
			start := time.Now()
			fn()
			took := time.Since(start)
			fired := eventbus.TaskFired{
				Name:     name,
				Tick:     a.clock.Now(),
				Duration: took,
			}
			a.bus.Publish(eventbus.Event{Type: eventbus.TypeTaskFired, Data: fired})
			if took > budget {
				a.bus.Publish(eventbus.Event{Type: eventbus.TypeTaskOverrun, Data: fired})
				a.log.Warn("task overran its period",
					logx.String("task", name),
					logx.Duration("took", took),
					logx.Duration("budget", budget),
				)
			}
		}

		h, err := a.sched.Add(wrapped, tc.Period, parseTaskState(tc.State))
		if err != nil {
			return fmt.Errorf("task %q: %w", tc.Name, err)
		}
		a.tasks[tc.Name] = h
		a.log.Debug("task registered",
			logx.String("task", tc.Name),
			logx.String("action", tc.Action),
			logx.Uint32("period", tc.Period),
			logx.String("state", a.sched.Status(h).String()),
		)
	}
	return nil
}

// parseTaskState maps config spellings to dispatcher states. Unknown
// values degrade to "scheduled" instead of failing startup.
func parseTaskState(s string) sched.State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scheduled":
		return sched.StateScheduled
	case "paused":
		return sched.StatePaused
	case "one-shot", "oneshot":
		return sched.StateOneShot
	case "run-now", "runnow", "now":
		return sched.StateRunNow
	case "one-shot-now", "oneshot-now":
		return sched.StateOneShotNow
	default:
		return sched.StateScheduled
	}
}

// Done is closed when the supervisor context is canceled (fatal error or
// Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	a.sup.Go("tick.clock", func(c context.Context) error {
		return a.clock.Run(c, a.quantum)
	})
	a.sup.Go("sched.dispatch", func(c context.Context) error {
		return a.sched.Run(c)
	})

	if a.hist != nil {
		a.sup.GoRestart("history.record", a.hist.Run)
	}
	if a.maint != nil {
		a.sup.GoRestart("maintenance", a.maint.Run, supervisor.WithMaxRestarts(3))
		a.sup.Go0("maintenance.initial", func(c context.Context) {
			if removed, err := a.maint.Prune(c); err == nil && removed > 0 {
				a.log.Info("startup prune", logx.Int64("removed", removed))
			}
		})
	}

	// Debug-level event tap. Components subscribe themselves for real
	// work; this exists purely for operational visibility.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Hot reload fan-out. Logging applies live; structural sections need
	// a restart and only produce a warning.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("daemon started",
		logx.Duration("quantum", a.quantum),
		logx.Int("tasks", a.sched.Len()),
		logx.Int("queues", len(a.queues)),
	)
	return nil
}

func (a *App) applyReload(old, cfg *config.Config) {
	if cfg == nil {
		return
	}

	if old == nil || !reflect.DeepEqual(old.Logging, cfg.Logging) {
		a.logs.Apply(mapLoggingConfig(cfg.Logging))
		a.log.Info("logging config applied")
	}

	restartOnly := []struct {
		name    string
		changed bool
	}{
		{"tick", old != nil && !reflect.DeepEqual(old.Tick, cfg.Tick)},
		{"scheduler", old != nil && !reflect.DeepEqual(old.Scheduler, cfg.Scheduler)},
		{"queues", old != nil && !reflect.DeepEqual(old.Queues, cfg.Queues)},
		{"storage", old != nil && !reflect.DeepEqual(old.Storage, cfg.Storage)},
		{"maintenance", old != nil && !reflect.DeepEqual(old.Maintenance, cfg.Maintenance)},
	}
	var pending []string
	for _, s := range restartOnly {
		if s.changed {
			pending = append(pending, s.name)
		}
	}
	if len(pending) > 0 {
		a.log.Warn("config sections changed; restart required",
			logx.String("sections", strings.Join(pending, ",")))
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfig, Data: cfg})
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context so the clock, dispatcher and services start
	// unwinding immediately.
	a.sup.Cancel()

	// Run a shutdown step with an upper bound so one component cannot
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}
