// Package coordinator implements the single-writer executor (the "strand")
// through which every mutating operation on the world and the player
// registry runs, plus the periodic tick task. It generalizes the
// register/unregister/broadcast channel-select loop of
// transport/websocket.Hub.Run into a general-purpose task executor: instead
// of three fixed channels, Coordinator has one task queue carrying
// arbitrary closures, preserving the same "one goroutine owns all mutation"
// guarantee.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

// Task is a unit of work run exclusively on the strand goroutine. It
// receives the world and the player registry and returns an arbitrary
// result plus an error.
type Task func(w *world.World, r *players.Registry) (any, error)

type job struct {
	task  Task
	reply chan result
}

type result struct {
	value any
	err   error
}

// Coordinator owns the World and the Registry and serializes every access
// to them through a single goroutine's select loop.
type Coordinator struct {
	world    *world.World
	registry *players.Registry

	jobs chan job
	done chan struct{}
}

// New returns a Coordinator wired to w and r. Call Run in its own goroutine
// before submitting tasks.
func New(w *world.World, r *players.Registry) *Coordinator {
	return &Coordinator{
		world:    w,
		registry: r,
		jobs:     make(chan job),
		done:     make(chan struct{}),
	}
}

// Run is the strand's event loop. It must be started exactly once, in its
// own goroutine, before the server begins accepting requests. Run returns
// when ctx is canceled and runs no further jobs; a Submit made after that
// fails with a "strand stopped" error (or with its own ctx's error, if that
// ctx is done too).
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(c.done)
			return
		case j := <-c.jobs:
			value, err := j.task(c.world, c.registry)
			j.reply <- result{value: value, err: err}
		}
	}
}

// Submit enqueues task and blocks until it has run on the strand, or ctx is
// canceled first.
func (c *Coordinator) Submit(ctx context.Context, task Task) (any, error) {
	reply := make(chan result, 1)
	select {
	case c.jobs <- job{task: task, reply: reply}:
	case <-c.done:
		return nil, fmt.Errorf("coordinator: strand stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TickFunc is the simulator's per-tick entry point, invoked on the strand.
// It receives the same ctx passed to StartTicker/Tick, which it may use for
// operations (retirement inserts, snapshot requests) that must not block
// the strand on I/O.
type TickFunc func(ctx context.Context, w *world.World, r *players.Registry, dt time.Duration) error

// StartTicker posts a self-rescheduling tick task at the given period. It
// returns immediately; the ticking goroutine stops when ctx is canceled.
// Passing a zero period is a caller error -- automatic-tick mode is opt-in
// only via a positive period (see Tick for test mode, period==0, where the
// caller drives ticks explicitly instead).
func (c *Coordinator) StartTicker(ctx context.Context, period time.Duration, tick TickFunc) {
	if period <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = c.Submit(ctx, func(w *world.World, r *players.Registry) (any, error) {
					return nil, tick(ctx, w, r, period)
				})
			}
		}
	}()
}

// Tick runs one explicit tick of dt on the strand; used by the
// /api/v1/game/tick endpoint in test mode (no periodic ticker running).
func (c *Coordinator) Tick(ctx context.Context, dt time.Duration, tick TickFunc) error {
	_, err := c.Submit(ctx, func(w *world.World, r *players.Registry) (any, error) {
		return nil, tick(ctx, w, r, dt)
	})
	return err
}
