// Package sim implements the per-tick orchestration (C5): move every dog,
// spawn loot, resolve collisions, update bags/scores, retire idle dogs, and
// account snapshot timing. Simulator holds no lock -- it is only ever
// invoked as a coordinator.TickFunc, so it runs exclusively on the strand.
package sim

import (
	"context"
	"time"

	"github.com/wricardo/scavenger-game-server/internal/collision"
	"github.com/wricardo/scavenger-game-server/internal/geom"
	"github.com/wricardo/scavenger-game-server/internal/loot"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

// RetiredRecord is one player's final tally, handed to the retirement sink.
type RetiredRecord struct {
	PlayerID   int
	Name       string
	Score      int
	PlayTimeMs int64
}

// RetirementSink receives batches of retired players. Implementations must
// not block the caller on I/O (see internal/retirement.Sink), per the
// strand's no-blocking-on-I/O rule.
type RetirementSink interface {
	Enqueue(ctx context.Context, records []RetiredRecord)
}

// SnapshotTrigger is notified when the snapshot accumulator overflows its
// configured period. Implementations must not block the caller.
type SnapshotTrigger interface {
	RequestSnapshot(ctx context.Context)
}

// Simulator runs one tick across every map in a World.
type Simulator struct {
	LootGenerators map[string]*loot.Generator // per map id

	Retirement      RetirementSink
	Snapshot        SnapshotTrigger
	SnapshotPeriod  time.Duration
	accumulatedTime time.Duration
}

// New returns a Simulator with one loot generator per map id in gens.
func New(gens map[string]*loot.Generator, retirement RetirementSink, snap SnapshotTrigger, snapshotPeriod time.Duration) *Simulator {
	return &Simulator{LootGenerators: gens, Retirement: retirement, Snapshot: snap, SnapshotPeriod: snapshotPeriod}
}

// Tick advances w and r by dt, in the five ordered steps of the simulation:
// move, spawn loot, resolve collisions, retire idle dogs, account snapshot
// timing.
func (s *Simulator) Tick(ctx context.Context, w *world.World, r *players.Registry, dt time.Duration) error {
	dtMs := dt.Milliseconds()

	s.moveDogs(w, r, dtMs)
	s.spawnLoot(w, r, dt)
	s.resolveCollisions(w, r)
	s.retireIdleDogs(ctx, w, r)
	s.accountSnapshot(ctx, dt)

	return nil
}

func (s *Simulator) moveDogs(w *world.World, r *players.Registry, dtMs int64) {
	for _, p := range r.All() {
		d := p.Dog
		if d.Retired {
			continue
		}
		m := w.Maps[p.MapID]
		d.LastPosition = d.Position

		moved := d.Position.Add(d.Velocity.Scale(float64(dtMs) / 1000.0))
		corridors := m.CorridorsContaining(d.Position)
		accepted := false
		for _, c := range corridors {
			if c.Contains(moved) {
				accepted = true
				break
			}
		}
		if accepted {
			d.Position = moved
		} else {
			d.Position = clampToFarthestBoundary(corridors, d.Position, moved)
			d.Velocity = geom.Vector{}
		}

		d.PlayTimeMs += dtMs
		if d.Velocity.IsZero() {
			d.IdleTimeMs += dtMs
		} else {
			d.IdleTimeMs = 0
		}
	}
}

// clampToFarthestBoundary clamps moved into whichever of corridors keeps it
// farthest from the dog's pre-move position, matching the "clamp to the
// farthest reachable boundary among those corridors" rule.
func clampToFarthestBoundary(corridors []geom.Rect, from, moved geom.Point) geom.Point {
	best := from
	bestDist := -1.0
	for _, c := range corridors {
		clamped := c.Clamp(moved)
		d := geom.SqDist(from, clamped)
		if d > bestDist {
			bestDist = d
			best = clamped
		}
	}
	return best
}

func (s *Simulator) spawnLoot(w *world.World, r *players.Registry, dt time.Duration) {
	for mapID, m := range w.Maps {
		gen, ok := s.LootGenerators[mapID]
		if !ok {
			continue
		}
		n := gen.Generate(dt, m.LootCount(), len(r.PlayersOnMap(mapID)))
		for i := 0; i < n; i++ {
			w.AddLoot(m)
		}
	}
}

const (
	dogRadius    = 0.3
	lootRadius   = 0.0
	officeRadius = world.OfficeRadius
)

func (s *Simulator) resolveCollisions(w *world.World, r *players.Registry) {
	for mapID, m := range w.Maps {
		dogs := r.PlayersOnMap(mapID)
		if len(dogs) == 0 {
			continue
		}
		gatherers := make([]collision.Gatherer, len(dogs))
		for i, p := range dogs {
			gatherers[i] = collision.Gatherer{Last: p.Dog.LastPosition, Current: p.Dog.Position, Radius: dogRadius}
		}

		lootList := m.LootList()
		items := make([]collision.Item, 0, len(lootList)+len(m.Offices))
		for _, item := range lootList {
			items = append(items, collision.Item{Position: item.Position, Radius: lootRadius})
		}
		officeStart := len(items)
		for _, o := range m.Offices {
			items = append(items, collision.Item{Position: o.Position, Radius: officeRadius})
		}

		events := collision.FindGatherEvents(gatherers, items)
		for _, ev := range events {
			dog := dogs[ev.GathererIdx].Dog
			if dog.Retired {
				continue
			}
			if ev.ItemIdx < officeStart {
				lootItem := lootList[ev.ItemIdx]
				if taken := m.TakeLootAt(lootItem.Position); taken != nil {
					if len(dog.Bag) < dog.BagCapacity {
						dog.Bag = append(dog.Bag, players.LootItem{
							ID:        taken.ID,
							KindIndex: taken.KindIndex,
							Value:     taken.Value,
						})
					} else {
						// No room: put it back so it remains available.
						m.AddLootInstance(taken)
					}
				}
			} else {
				dog.Score += dog.BagValue()
				dog.Bag = nil
			}
		}
	}
}

func (s *Simulator) retireIdleDogs(ctx context.Context, w *world.World, r *players.Registry) {
	var retired []RetiredRecord
	for _, p := range r.All() {
		m := w.Maps[p.MapID]
		thresholdMs := int64(m.DogRetirementTime * 1000)
		if p.Dog.IdleTimeMs >= thresholdMs {
			p.Dog.Retired = true
			retired = append(retired, RetiredRecord{
				PlayerID:   p.ID,
				Name:       p.Name,
				Score:      p.Dog.Score,
				PlayTimeMs: p.Dog.PlayTimeMs,
			})
		}
	}
	for _, rec := range retired {
		p := findPlayerByID(r, rec.PlayerID)
		if p != nil {
			r.Retire(p.Token)
		}
	}
	if len(retired) > 0 && s.Retirement != nil {
		s.Retirement.Enqueue(ctx, retired)
	}
}

func findPlayerByID(r *players.Registry, id int) *players.Player {
	for _, p := range r.All() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Simulator) accountSnapshot(ctx context.Context, dt time.Duration) {
	if s.SnapshotPeriod <= 0 || s.Snapshot == nil {
		return
	}
	s.accumulatedTime += dt
	if s.accumulatedTime >= s.SnapshotPeriod {
		s.accumulatedTime = 0
		s.Snapshot.RequestSnapshot(ctx)
	}
}
