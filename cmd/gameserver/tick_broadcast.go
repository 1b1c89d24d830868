package main

import (
	"context"
	"time"

	"github.com/wricardo/scavenger-game-server/internal/coordinator"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/sim"
	"github.com/wricardo/scavenger-game-server/internal/world"
	"github.com/wricardo/scavenger-game-server/transport/websocket"
)

// broadcastingTick wraps the simulator's tick with a post-tick push of each
// map's state to the live-view hub. Building the per-map view happens while
// still on the strand, so the read of World/Registry is safe; the hub send
// itself only blocks on the hub's own unbuffered broadcast channel, never
// on a client socket (see transport/websocket.Hub.BroadcastState).
func broadcastingTick(s *sim.Simulator, hub *websocket.Hub, maps map[string]*world.Map) coordinator.TickFunc {
	return func(ctx context.Context, w *world.World, r *players.Registry, dt time.Duration) error {
		if err := s.Tick(ctx, w, r, dt); err != nil {
			return err
		}
		for id := range maps {
			hub.BroadcastState(id, buildMapState(w, r, id))
		}
		return nil
	}
}

func buildMapState(w *world.World, r *players.Registry, mapID string) any {
	on := r.PlayersOnMap(mapID)
	playersOut := make(map[int]any, len(on))
	for _, p := range on {
		bag := make([]int, len(p.Dog.Bag))
		for i, item := range p.Dog.Bag {
			bag[i] = item.ID
		}
		dir := ""
		if p.Dog.Direction != players.DirNone {
			dir = string(rune(p.Dog.Direction))
		}
		playersOut[p.ID] = map[string]any{
			"pos":   [2]float64{p.Dog.Position.X, p.Dog.Position.Y},
			"speed": [2]float64{p.Dog.Velocity.X, p.Dog.Velocity.Y},
			"dir":   dir,
			"bag":   bag,
			"score": p.Dog.Score,
		}
	}

	lost := make(map[int]any)
	if m, ok := w.Maps[mapID]; ok {
		for _, item := range m.LootList() {
			lost[item.ID] = map[string]any{
				"type": item.KindIndex,
				"pos":  [2]float64{item.Position.X, item.Position.Y},
			}
		}
	}

	return map[string]any{"players": playersOut, "lostObjects": lost}
}
