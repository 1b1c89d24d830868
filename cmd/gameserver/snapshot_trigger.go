package main

import (
	"context"

	"github.com/wricardo/scavenger-game-server/internal/applog"
	"github.com/wricardo/scavenger-game-server/internal/coordinator"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/snapshot"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

// snapshotTrigger implements sim.SnapshotTrigger. RequestSnapshot is called
// from the strand itself, so it must not block on file I/O there; it only
// posts a non-blocking signal to a buffered channel. run, on its own
// goroutine, submits a Build (cheap, no I/O) to the strand and then calls
// Persist (the encode/temp-write/rename) off the strand entirely, so the
// simulation never blocks on disk.
type snapshotTrigger struct {
	coord   *coordinator.Coordinator
	store   *snapshot.Store
	signals chan struct{}
}

func newSnapshotTrigger(coord *coordinator.Coordinator, store *snapshot.Store) *snapshotTrigger {
	return &snapshotTrigger{coord: coord, store: store, signals: make(chan struct{}, 1)}
}

// RequestSnapshot is safe to call from the strand: the send is non-blocking
// because signals is buffered and a pending signal is coalesced.
func (t *snapshotTrigger) RequestSnapshot(ctx context.Context) {
	select {
	case t.signals <- struct{}{}:
	default:
	}
}

// run drains signals until ctx is canceled. Each signal costs the strand
// one cheap Build; the actual disk write happens here, off the strand.
func (t *snapshotTrigger) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.signals:
			value, err := t.coord.Submit(ctx, func(w *world.World, r *players.Registry) (any, error) {
				return t.store.Build(w, r), nil
			})
			if err != nil {
				applog.Warnf("periodic snapshot failed: %v", err)
				continue
			}
			if err := t.store.Persist(value.(snapshot.Snapshot)); err != nil {
				applog.Warnf("periodic snapshot failed: %v", err)
			}
		}
	}
}
