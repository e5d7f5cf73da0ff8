package app

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"minirtos/internal/eventbus"
	"minirtos/internal/queue"
	logx "minirtos/pkg/logx"
)

// actionDeps is what a built-in action may touch. Actions are plain
// closures so the dispatcher stays oblivious to the daemon around it.
type actionDeps struct {
	log    logx.Logger
	bus    eventbus.Bus
	now    func() uint32
	queues map[string]*queue.Queue
	q      *queue.Queue // the task's bound queue, may be nil
}

// buildAction resolves a config action name to a callback.
//
// Built-ins:
//   - heartbeat: log a liveness line
//   - tickreport: log the current tick and publish queue depths
//   - produce: append a counter message to the bound queue
//   - consume: drain one message from the bound queue
//   - oneshot-banner: log a startup banner (pair with state one-shot-now)
func buildAction(name string, deps actionDeps) (func(), error) {
	switch name {
	case "heartbeat":
		return func() {
			deps.log.Info("heartbeat", logx.Uint32("tick", deps.now()))
		}, nil

	case "tickreport":
		return func() {
			deps.log.Info("tick report", logx.Uint32("tick", deps.now()), logx.Int("queues", len(deps.queues)))
			for qname, q := range deps.queues {
				deps.bus.Publish(eventbus.Event{
					Type: eventbus.TypeQueueStats,
					Data: eventbus.QueueStats{Name: qname, Count: q.Count(), Capacity: q.Capacity()},
				})
			}
		}, nil

	case "produce":
		if deps.q == nil {
			return nil, fmt.Errorf("action %q requires a queue", name)
		}
		var seq atomic.Uint64
		size := deps.q.ElementSize()
		return func() {
			msg := make([]byte, size)
			n := seq.Add(1)
			if size >= 8 {
				binary.LittleEndian.PutUint64(msg, n)
			} else {
				for i := range msg {
					msg[i] = byte(n)
				}
			}
			if err := deps.q.Send(msg); err != nil {
				deps.log.Debug("produce skipped", logx.Err(err))
			}
		}, nil

	case "consume":
		if deps.q == nil {
			return nil, fmt.Errorf("action %q requires a queue", name)
		}
		size := deps.q.ElementSize()
		return func() {
			msg := make([]byte, size)
			if err := deps.q.Receive(msg); err != nil {
				deps.log.Debug("consume skipped", logx.Err(err))
				return
			}
			deps.log.Debug("consumed", logx.Int("remaining", deps.q.Count()))
		}, nil

	case "oneshot-banner":
		return func() {
			deps.log.Info("scheduler online", logx.Uint32("tick", deps.now()))
		}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", name)
	}
}
