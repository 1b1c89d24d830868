// Package world holds the immutable map catalog and the per-map mutable
// loot list: the authoritative geometry and loot state the simulator reads
// and mutates every tick. Mutating methods are safe only when called from
// the coordinator's single-writer goroutine; World itself holds no lock, by
// design (see internal/coordinator).
package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/wricardo/scavenger-game-server/internal/geom"
)

// ErrDuplicateOfficeID is returned by AddOffice when the office id already
// exists on that map.
var ErrDuplicateOfficeID = errors.New("world: duplicate office id")

// RoadHalfWidth is the corridor widening on each side of a road's axis.
const RoadHalfWidth = 0.4

// OfficeRadius is the pickup radius around an office's position.
const OfficeRadius = 0.25

// LootKind is a catalog entry: a kind of loot with a fixed value.
type LootKind struct {
	Value int
}

// Road is an axis-aligned travel segment widened into a corridor.
type Road struct {
	Start, End geom.Point
}

// Corridor returns the widened rectangle a dog may occupy while on this road.
func (r Road) Corridor() geom.Rect {
	minX, maxX := r.Start.X, r.End.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := r.Start.Y, r.End.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return geom.Rect{
		Min: geom.Point{X: minX - RoadHalfWidth, Y: minY - RoadHalfWidth},
		Max: geom.Point{X: maxX + RoadHalfWidth, Y: maxY + RoadHalfWidth},
	}
}

// Building is a decorative, non-interactive rectangle.
type Building struct {
	Min, Max geom.Point
}

// Office is a deposit target.
type Office struct {
	ID       string
	Position geom.Point
}

// LootInstance is a spawned, pickable item on a map.
type LootInstance struct {
	ID        int
	KindIndex int
	Position  geom.Point
	Value     int
}

// Map is the immutable-after-load description of one game world, plus its
// mutable loot list.
type Map struct {
	ID   string
	Name string

	Roads     []Road
	Buildings []Building
	Offices   []Office
	LootKinds []LootKind

	DogSpeed          float64
	BagCapacity       int
	DogRetirementTime float64 // seconds

	loot map[int]*LootInstance
}

// NewMap returns an empty map ready to receive roads/buildings/offices.
func NewMap(id, name string) *Map {
	return &Map{ID: id, Name: name, loot: make(map[int]*LootInstance)}
}

// AddRoad appends a road to the map. Load-time only.
func (m *Map) AddRoad(r Road) { m.Roads = append(m.Roads, r) }

// AddBuilding appends a decorative building. Load-time only.
func (m *Map) AddBuilding(b Building) { m.Buildings = append(m.Buildings, b) }

// AddOffice appends an office, failing if the id is already present.
func (m *Map) AddOffice(o Office) error {
	for _, existing := range m.Offices {
		if existing.ID == o.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateOfficeID, o.ID)
		}
	}
	m.Offices = append(m.Offices, o)
	return nil
}

// InCorridor reports whether p lies in at least one of this map's road
// corridors.
func (m *Map) InCorridor(p geom.Point) bool {
	for _, r := range m.Roads {
		if r.Corridor().Contains(p) {
			return true
		}
	}
	return false
}

// CorridorsContaining returns every corridor of this map that contains p.
func (m *Map) CorridorsContaining(p geom.Point) []geom.Rect {
	var out []geom.Rect
	for _, r := range m.Roads {
		c := r.Corridor()
		if c.Contains(p) {
			out = append(out, c)
		}
	}
	return out
}

// InitialPoint returns the deterministic spawn point: the first road's
// start. Panics if the map has no roads, which is a config error caught at
// load time.
func (m *Map) InitialPoint() geom.Point {
	return m.Roads[0].Start
}

// RandomRoadPoint uniformly picks a road, then a uniformly distributed point
// along that road's corridor (including the perpendicular widening).
func (m *Map) RandomRoadPoint(rng *rand.Rand) geom.Point {
	r := m.Roads[rng.Intn(len(m.Roads))]
	c := r.Corridor()
	x := c.Min.X + rng.Float64()*(c.Max.X-c.Min.X)
	y := c.Min.Y + rng.Float64()*(c.Max.Y-c.Min.Y)
	return geom.Point{X: x, Y: y}
}

// LootList returns a snapshot of the map's current loot, ordered by id.
func (m *Map) LootList() []*LootInstance {
	out := make([]*LootInstance, 0, len(m.loot))
	for _, item := range m.loot {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TakeLootAt removes and returns the loot whose position equals p exactly,
// or nil if none matches.
func (m *Map) TakeLootAt(p geom.Point) *LootInstance {
	for id, item := range m.loot {
		if item.Position == p {
			delete(m.loot, id)
			return item
		}
	}
	return nil
}

// IsOfficeAt reports whether p equals some office's position exactly.
func (m *Map) IsOfficeAt(p geom.Point) bool {
	for _, o := range m.Offices {
		if o.Position == p {
			return true
		}
	}
	return false
}

// AddLootInstance inserts a pre-built instance, used by snapshot restore and
// by the simulator to put back loot that a full bag could not take.
func (m *Map) AddLootInstance(item *LootInstance) {
	m.loot[item.ID] = item
}

// LootCount returns the number of loot items currently on the map.
func (m *Map) LootCount() int { return len(m.loot) }

// World owns every Map, keyed by id, plus the process-wide monotonic loot id
// counter (bumped past any restored id, per the registry's id-preservation
// requirement).
type World struct {
	Maps      map[string]*Map
	RandomGen *rand.Rand

	nextLootID int
}

// New returns an empty World seeded with rng for spawn-point and loot
// randomization.
func New(rng *rand.Rand) *World {
	return &World{Maps: make(map[string]*Map), RandomGen: rng, nextLootID: 1}
}

// AddMap registers m under its id.
func (w *World) AddMap(m *Map) { w.Maps[m.ID] = m }

// MapIDs returns every map id, sorted, for callers (the /maps listing, log
// lines) that need a stable order over the catalog's unordered map.
func (w *World) MapIDs() []string {
	return SortedMapIDs(w.Maps)
}

// SortedMapIDs returns every key of catalog, sorted. Shared by World.MapIDs
// and api.NewServer so both derive the same stable map ordering from a
// map[string]*Map without duplicating the sort.
func SortedMapIDs(catalog map[string]*Map) []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BumpLootID advances the monotonic loot-id counter so it never reissues an
// id at or below the given one; used by snapshot restore.
func (w *World) BumpLootID(atLeast int) {
	if atLeast >= w.nextLootID {
		w.nextLootID = atLeast + 1
	}
}

// AddLoot spawns a new loot instance with a fresh id on m: a random road
// point, a uniformly-chosen kind, and the value copied from the map's
// LootKinds catalog.
func (w *World) AddLoot(m *Map) *LootInstance {
	kindIdx := w.RandomGen.Intn(len(m.LootKinds))
	item := &LootInstance{
		ID:        w.nextLootID,
		KindIndex: kindIdx,
		Position:  m.RandomRoadPoint(w.RandomGen),
		Value:     m.LootKinds[kindIdx].Value,
	}
	w.nextLootID++
	m.AddLootInstance(item)
	return item
}
