package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/scavenger-game-server/internal/coordinator"
	"github.com/wricardo/scavenger-game-server/internal/geom"
	"github.com/wricardo/scavenger-game-server/internal/loot"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/retirement"
	"github.com/wricardo/scavenger-game-server/internal/sim"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

type fakeRecords struct{}

func (fakeRecords) Records(ctx context.Context, offset, limit int) ([]retirement.Record, error) {
	return []retirement.Record{{UUID: "x", Name: "bob", Score: 0, PlayTime: 2.5}}, nil
}

func newTestServer(t *testing.T, autoTick bool) (*Server, func()) {
	t.Helper()
	m := world.NewMap("town", "Town")
	m.AddRoad(world.Road{Start: geom.Point{X: 0, Y: 0}, End: geom.Point{X: 10, Y: 0}})
	m.LootKinds = []world.LootKind{{Value: 42}}
	m.DogSpeed = 2
	m.BagCapacity = 3
	m.DogRetirementTime = 60

	w := world.New(rand.New(rand.NewSource(1)))
	w.AddMap(m)
	reg := players.NewRegistry()
	coord := coordinator.New(w, reg)

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)

	simulator := sim.New(map[string]*loot.Generator{"town": loot.NewGenerator(time.Second, 0)}, noopSink{}, nil, 0)

	catalog := map[string]*world.Map{"town": m}
	srv := NewServer(coord, simulator, catalog, false, autoTick, fakeRecords{})
	return srv, cancel
}

type noopSink struct{}

func (noopSink) Enqueue(ctx context.Context, records []sim.RetiredRecord) {}

func doRequest(srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestListMaps(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodGet, "/api/v1/maps", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetMapNotFound(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodGet, "/api/v1/maps/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Code != "mapNotFound" {
		t.Errorf("code = %q, want mapNotFound", body.Code)
	}
}

func TestJoinThenPlayersAndState(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodPost, "/api/v1/game/join", map[string]string{"userName": "alice", "mapId": "town"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var joinResp struct {
		AuthToken string `json:"authToken"`
		PlayerID  int    `json:"playerId"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &joinResp)
	if len(joinResp.AuthToken) != 32 {
		t.Fatalf("authToken = %q, want 32 hex chars", joinResp.AuthToken)
	}

	rec = doRequest(srv, http.MethodGet, "/api/v1/game/players", nil, joinResp.AuthToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("players status = %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/api/v1/game/state", nil, joinResp.AuthToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
}

func TestJoinInvalidNameRejected(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodPost, "/api/v1/game/join", map[string]string{"userName": "", "mapId": "town"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStateRequiresAuth(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodGet, "/api/v1/game/state", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/api/v1/game/state", nil, "000000000000000000000000000000ff")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for well-formed but unknown token", rec.Code)
	}
}

func TestTickEndpointGateWhenAutoTick(t *testing.T) {
	srv, cancel := newTestServer(t, true)
	defer cancel()

	rec := doRequest(srv, http.MethodPost, "/api/v1/game/tick", map[string]int64{"timeDelta": 100}, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405 in auto-tick mode", rec.Code)
	}
}

func TestTickEndpointWorksInTestMode(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodPost, "/api/v1/game/tick", map[string]int64{"timeDelta": 1000}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodPost, "/api/v1/game/tick", map[string]int64{"timeDelta": 0}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-positive timeDelta", rec.Code)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodGet, "/api/v1/game/records", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJoinMethodNotAllowed(t *testing.T) {
	srv, cancel := newTestServer(t, false)
	defer cancel()

	rec := doRequest(srv, http.MethodGet, "/api/v1/game/join", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") == "" {
		t.Errorf("expected Allow header on 405 response")
	}
}
