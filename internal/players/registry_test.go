package players

import (
	"testing"

	"github.com/wricardo/scavenger-game-server/internal/geom"
)

func TestJoinIssuesUniqueTokenAndID(t *testing.T) {
	r := NewRegistry()
	a, err := r.Join("alice", "town", geom.Point{}, 3)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	b, err := r.Join("bob", "town", geom.Point{}, 3)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if a.Token == b.Token {
		t.Fatalf("tokens must be unique")
	}
	if a.ID == b.ID {
		t.Fatalf("ids must be unique")
	}
	if len(a.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(a.Token))
	}
}

func TestLookupUnknownToken(t *testing.T) {
	r := NewRegistry()
	if p := r.Lookup("deadbeef"); p != nil {
		t.Fatalf("expected nil for unknown token, got %+v", p)
	}
}

func TestRetireInvalidatesToken(t *testing.T) {
	r := NewRegistry()
	p, _ := r.Join("carol", "town", geom.Point{}, 3)
	retired := r.Retire(p.Token)
	if retired == nil || retired.ID != p.ID {
		t.Fatalf("Retire did not return the player")
	}
	if r.Lookup(p.Token) != nil {
		t.Fatalf("token should be invalid after retirement")
	}
}

func TestReinsertBumpsIDCounter(t *testing.T) {
	r := NewRegistry()
	restored := &Player{ID: 500, Name: "dave", MapID: "town", Token: "abc123", Dog: &Dog{}}
	r.Reinsert(restored)
	next, err := r.Join("erin", "town", geom.Point{}, 3)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if next.ID <= 500 {
		t.Fatalf("id after Reinsert(500) should exceed 500, got %d", next.ID)
	}
}

func TestPlayersOnMapFiltersByMap(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Join("alice", "town", geom.Point{}, 3)
	_, _ = r.Join("bob", "lake", geom.Point{}, 3)
	onTown := r.PlayersOnMap("town")
	if len(onTown) != 1 || onTown[0].Name != "alice" {
		t.Fatalf("PlayersOnMap(town) = %+v, want just alice", onTown)
	}
}

func TestBagValueSumsLootValues(t *testing.T) {
	d := &Dog{Bag: []LootItem{{Value: 10}, {Value: 32}}}
	if got := d.BagValue(); got != 42 {
		t.Errorf("BagValue() = %d, want 42", got)
	}
}
