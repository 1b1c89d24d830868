// Package players implements the player/token registry (C6): Player and Dog
// entities, token issuance, and per-map player lists. Like internal/world,
// Registry carries no internal lock of its own; every mutating method is
// meant to be called only from the coordinator's single-writer goroutine
// (see internal/coordinator), the same way game/session/manager.go in the
// teacher guards its map with sync.RWMutex -- here the guarantee is strand
// ordering rather than a mutex.
package players

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/wricardo/scavenger-game-server/internal/geom"
)

// Direction is the dog's facing, used for client rendering hints only.
type Direction byte

const (
	DirNone  Direction = 0
	DirLeft  Direction = 'L'
	DirRight Direction = 'R'
	DirUp    Direction = 'U'
	DirDown  Direction = 'D'
)

// LootItem is the bag's element type: a loot instance carried by a dog.
type LootItem struct {
	ID        int
	KindIndex int
	Value     int
}

// Dog is the in-world avatar of a Player.
type Dog struct {
	LastPosition geom.Point
	Position     geom.Point
	Velocity     geom.Vector
	Direction    Direction

	Bag         []LootItem
	BagCapacity int

	Score int

	PlayTimeMs int64
	IdleTimeMs int64

	Retired bool
}

// BagValue returns the sum of the bag's loot values.
func (d *Dog) BagValue() int {
	total := 0
	for _, item := range d.Bag {
		total += item.Value
	}
	return total
}

// Player is a joined participant: a stable id, a display name, the map it
// joined, and the Dog it exclusively owns.
type Player struct {
	ID     int
	Name   string
	MapID  string
	Dog    *Dog
	Token  string
}

// Registry holds every live player, keyed by token, plus the process-wide
// monotonic id counter. There is no separate per-map index: PlayersOnMap
// scans every live player.
type Registry struct {
	byToken map[string]*Player
	nextID  int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byToken: make(map[string]*Player)}
}

// GenerateToken returns a 32-hex-character opaque token built from two
// concatenated 64-bit OS-randomness draws, matching the reference
// implementation's two-generator scheme (there seeded from
// std::random_device; here drawn directly from crypto/rand, which already
// gives the "seeded once per process from OS randomness" guarantee without
// needing a separate PRNG layer).
func GenerateToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("players: generate token: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// Join allocates a new Player bound to mapID with the given spawn position
// and per-map tunables, issues a fresh token, and registers it. The caller
// (the API layer, acting through the coordinator) is responsible for
// picking the spawn position per the randomize-spawn flag.
func (r *Registry) Join(name, mapID string, spawn geom.Point, bagCapacity int) (*Player, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	r.nextID++
	p := &Player{
		ID:    r.nextID,
		Name:  name,
		MapID: mapID,
		Token: token,
		Dog: &Dog{
			LastPosition: spawn,
			Position:     spawn,
			BagCapacity:  bagCapacity,
		},
	}
	r.byToken[token] = p
	return p, nil
}

// Lookup returns the player bound to token, or nil.
func (r *Registry) Lookup(token string) *Player {
	return r.byToken[token]
}

// PlayersOnMap returns every live player whose MapID matches mapID.
func (r *Registry) PlayersOnMap(mapID string) []*Player {
	var out []*Player
	for _, p := range r.byToken {
		if p.MapID == mapID {
			out = append(out, p)
		}
	}
	return out
}

// All returns every live player.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.byToken))
	for _, p := range r.byToken {
		out = append(out, p)
	}
	return out
}

// Retire removes a player from the live registry and invalidates its token.
// The caller is responsible for emitting the retirement record to C10 before
// or after calling this -- Retire itself only mutates the registry.
func (r *Registry) Retire(token string) *Player {
	p, ok := r.byToken[token]
	if !ok {
		return nil
	}
	delete(r.byToken, token)
	return p
}

// Reinsert re-registers a player under its original token, used only by
// snapshot restore (C9). It bumps the id counter above the restored id so
// ids never collide within a run.
func (r *Registry) Reinsert(p *Player) {
	r.byToken[p.Token] = p
	if p.ID > r.nextID {
		r.nextID = p.ID
	}
}

// Count returns the number of live players.
func (r *Registry) Count() int { return len(r.byToken) }
