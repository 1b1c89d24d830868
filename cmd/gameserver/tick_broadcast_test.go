package main

import (
	"math/rand"
	"testing"

	"github.com/wricardo/scavenger-game-server/internal/geom"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

func TestBuildMapState(t *testing.T) {
	m := world.NewMap("town", "Town")
	m.AddRoad(world.Road{Start: geom.Point{X: 0, Y: 0}, End: geom.Point{X: 10, Y: 0}})
	m.LootKinds = []world.LootKind{{Value: 10}}
	m.BagCapacity = 3

	w := world.New(rand.New(rand.NewSource(1)))
	w.AddMap(m)
	w.AddLoot(m)

	reg := players.NewRegistry()
	p, err := reg.Join("alice", "town", geom.Point{X: 0, Y: 0}, m.BagCapacity)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	p.Dog.Score = 7

	state := buildMapState(w, reg, "town").(map[string]any)

	playersOut, ok := state["players"].(map[int]any)
	if !ok || len(playersOut) != 1 {
		t.Fatalf("players = %#v, want one entry", state["players"])
	}
	entry := playersOut[p.ID].(map[string]any)
	if entry["score"] != 7 {
		t.Errorf("score = %v, want 7", entry["score"])
	}

	lost, ok := state["lostObjects"].(map[int]any)
	if !ok || len(lost) != 1 {
		t.Fatalf("lostObjects = %#v, want one entry", state["lostObjects"])
	}
}

func TestBuildMapStateUnknownMapHasNoLostObjects(t *testing.T) {
	w := world.New(rand.New(rand.NewSource(1)))
	reg := players.NewRegistry()

	state := buildMapState(w, reg, "nowhere").(map[string]any)
	lost := state["lostObjects"].(map[int]any)
	if len(lost) != 0 {
		t.Errorf("expected no lost objects for unknown map, got %d", len(lost))
	}
}
