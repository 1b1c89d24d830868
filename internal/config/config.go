// Package config builds a populated World and one loot.Generator per map
// from a single JSON document (C8), following the same
// read-then-validate-then-build shape as the teacher's
// game/engine/config.go (LoadGameConfig/ValidateGameConfig), adapted to the
// field names used by the reference implementation's JSON config
// (original_source/.../constants.h: "maps", "roads", "buildings", "offices",
// "lootTypes", ...).
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/wricardo/scavenger-game-server/internal/geom"
	"github.com/wricardo/scavenger-game-server/internal/loot"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

// Defaults, per C8.
const (
	DefaultDogSpeed        = 1.0
	DefaultBagCapacity     = 3
	DefaultDogRetirement   = 60.0
	DefaultLootPeriodSec   = 5.0
	DefaultLootProbability = 0.5
)

// Error wraps a malformed-config condition. The caller maps this to
// CONFIG_ERROR and exits.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type roadDoc struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

type buildingDoc struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type officeDoc struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type lootTypeDoc struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type mapDoc struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Roads             []roadDoc     `json:"roads"`
	Buildings         []buildingDoc `json:"buildings"`
	Offices           []officeDoc   `json:"offices"`
	LootTypes         []lootTypeDoc `json:"lootTypes"`
	DogSpeed          *float64      `json:"dogSpeed"`
	BagCapacity       *int          `json:"bagCapacity"`
	DogRetirementTime *float64      `json:"dogRetirementTime"`
}

type rootDoc struct {
	DefaultDogSpeed    *float64 `json:"defaultDogSpeed"`
	DefaultBagCapacity *int     `json:"defaultBagCapacity"`
	DogRetirementTime  *float64 `json:"dogRetirementTime"`
	LootPeriod         *float64 `json:"lootGeneratorPeriod"`
	LootProbability    *float64 `json:"lootGeneratorProbability"`
	Maps               []mapDoc `json:"maps"`
}

// Result is the fully populated output of Load.
type Result struct {
	World          *world.World
	LootGenerators map[string]*loot.Generator
	RandomizeSpawn bool
}

// Load reads and validates the JSON document at path, returning a populated
// World and per-map loot generators. Any malformed entry is reported as
// *Error.
func Load(path string, rng *rand.Rand) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "file", Err: err}
	}

	var doc rootDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Field: "json", Err: err}
	}

	defaultDogSpeed := DefaultDogSpeed
	if doc.DefaultDogSpeed != nil {
		defaultDogSpeed = *doc.DefaultDogSpeed
	}
	defaultBagCapacity := DefaultBagCapacity
	if doc.DefaultBagCapacity != nil {
		defaultBagCapacity = *doc.DefaultBagCapacity
	}
	defaultRetirement := DefaultDogRetirement
	if doc.DogRetirementTime != nil {
		defaultRetirement = *doc.DogRetirementTime
	}
	lootPeriod := DefaultLootPeriodSec
	if doc.LootPeriod != nil {
		lootPeriod = *doc.LootPeriod
	}
	lootProbability := DefaultLootProbability
	if doc.LootProbability != nil {
		lootProbability = *doc.LootProbability
	}
	if lootProbability < 0 || lootProbability > 1 {
		return nil, &Error{Field: "lootGeneratorProbability", Err: fmt.Errorf("must be in [0,1]")}
	}

	if len(doc.Maps) == 0 {
		return nil, &Error{Field: "maps", Err: fmt.Errorf("at least one map is required")}
	}

	w := world.New(rng)
	gens := make(map[string]*loot.Generator)

	for _, md := range doc.Maps {
		if md.ID == "" {
			return nil, &Error{Field: "maps[].id", Err: fmt.Errorf("map id is required")}
		}
		if len(md.Roads) == 0 {
			return nil, &Error{Field: fmt.Sprintf("maps[%s].roads", md.ID), Err: fmt.Errorf("at least one road is required")}
		}
		if len(md.LootTypes) == 0 {
			return nil, &Error{Field: fmt.Sprintf("maps[%s].lootTypes", md.ID), Err: fmt.Errorf("at least one loot type is required")}
		}

		m := world.NewMap(md.ID, md.Name)
		for _, rd := range md.Roads {
			m.AddRoad(world.Road{
				Start: geom.Point{X: rd.X0, Y: rd.Y0},
				End:   geom.Point{X: rd.X1, Y: rd.Y1},
			})
		}
		for _, bd := range md.Buildings {
			m.AddBuilding(world.Building{
				Min: geom.Point{X: bd.X, Y: bd.Y},
				Max: geom.Point{X: bd.X + bd.W, Y: bd.Y + bd.H},
			})
		}
		for _, od := range md.Offices {
			if od.ID == "" {
				return nil, &Error{Field: fmt.Sprintf("maps[%s].offices[].id", md.ID), Err: fmt.Errorf("office id is required")}
			}
			if err := m.AddOffice(world.Office{
				ID:       od.ID,
				Position: geom.Point{X: od.X + od.OffsetX, Y: od.Y + od.OffsetY},
			}); err != nil {
				return nil, &Error{Field: fmt.Sprintf("maps[%s].offices", md.ID), Err: err}
			}
		}
		for _, lt := range md.LootTypes {
			m.LootKinds = append(m.LootKinds, world.LootKind{Value: lt.Value})
		}

		m.DogSpeed = defaultDogSpeed
		if md.DogSpeed != nil {
			m.DogSpeed = *md.DogSpeed
		}
		m.BagCapacity = defaultBagCapacity
		if md.BagCapacity != nil {
			m.BagCapacity = *md.BagCapacity
		}
		m.DogRetirementTime = defaultRetirement
		if md.DogRetirementTime != nil {
			m.DogRetirementTime = *md.DogRetirementTime
		}

		w.AddMap(m)
		gens[md.ID] = loot.NewGenerator(time.Duration(lootPeriod*float64(time.Second)), lootProbability)
	}

	return &Result{World: w, LootGenerators: gens}, nil
}
