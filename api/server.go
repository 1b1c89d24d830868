package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/scavenger-game-server/internal/coordinator"
	"github.com/wricardo/scavenger-game-server/internal/geom"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/retirement"
	"github.com/wricardo/scavenger-game-server/internal/sim"
	"github.com/wricardo/scavenger-game-server/internal/world"
)

// RecordsSource is the read side of the retirement sink the /records route
// needs; kept as a narrow interface so the server can be tested without a
// real database, the same dependency-injection shape the teacher's
// game/service package uses for its SessionManager/ConfigManager.
type RecordsSource interface {
	Records(ctx context.Context, offset, limit int) ([]retirement.Record, error)
}

// Server adapts the coordinator's operations to the fixed HTTP/JSON
// contract.
type Server struct {
	coord *coordinator.Coordinator
	sim   *sim.Simulator

	mapCatalog     map[string]*world.Map // immutable after load, safe to read directly
	mapOrder       []string
	randomizeSpawn bool
	autoTickMode   bool // true when the server runs a periodic ticker; gates /game/tick to 405

	records RecordsSource

	router *mux.Router
}

// NewServer builds the router. mapCatalog must be the same Map values
// referenced inside the World the coordinator owns (roads/offices/loot
// kinds are immutable after load, so reading them outside the strand is
// safe).
func NewServer(coord *coordinator.Coordinator, simulator *sim.Simulator, mapCatalog map[string]*world.Map, randomizeSpawn, autoTickMode bool, records RecordsSource) *Server {
	order := world.SortedMapIDs(mapCatalog)

	s := &Server{
		coord:          coord,
		sim:            simulator,
		mapCatalog:     mapCatalog,
		mapOrder:       order,
		randomizeSpawn: randomizeSpawn,
		autoTickMode:   autoTickMode,
		records:        records,
		router:         mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/maps", s.handleListMaps).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/maps/{id}", s.handleGetMap).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/game/players", s.handlePlayers).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/state", s.handleState).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/game/player/action", s.handleAction).Methods(http.MethodPost)
	api.HandleFunc("/game/tick", s.handleTick).Methods(http.MethodPost)
	api.HandleFunc("/game/records", s.handleRecords).Methods(http.MethodGet)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var methods []string
		_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			re, err := route.GetPathRegexp()
			if err != nil {
				return nil
			}
			if ok, _ := regexp.MatchString(re, r.URL.Path); !ok {
				return nil
			}
			if m, err := route.GetMethods(); err == nil {
				methods = append(methods, m...)
			}
			return nil
		})
		respondMethodNotAllowed(w, strings.Join(methods, ", "))
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]entry, 0, len(s.mapOrder))
	for _, id := range s.mapOrder {
		m := s.mapCatalog[id]
		out = append(out, entry{ID: m.ID, Name: m.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, ok := s.mapCatalog[id]
	if !ok {
		respondError(w, errMapNotFound())
		return
	}

	type roadView struct{ X0, Y0, X1, Y1 float64 }
	type officeView struct {
		ID   string
		X, Y float64
	}
	type lootKindView struct{ Value int }

	roads := make([]roadView, len(m.Roads))
	for i, rd := range m.Roads {
		roads[i] = roadView{X0: rd.Start.X, Y0: rd.Start.Y, X1: rd.End.X, Y1: rd.End.Y}
	}
	offices := make([]officeView, len(m.Offices))
	for i, o := range m.Offices {
		offices[i] = officeView{ID: o.ID, X: o.Position.X, Y: o.Position.Y}
	}
	kinds := make([]lootKindView, len(m.LootKinds))
	for i, k := range m.LootKinds {
		kinds[i] = lootKindView{Value: k.Value}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":      m.ID,
		"name":    m.Name,
		"roads":   roads,
		"offices": offices,
		"lootTypes": kinds,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"userName"`
		MapID    string `json:"mapId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errInvalidArgument("malformed JSON body"))
		return
	}
	if strings.TrimSpace(req.UserName) == "" {
		respondError(w, errInvalidName("userName must not be empty"))
		return
	}
	if _, ok := s.mapCatalog[req.MapID]; !ok {
		respondError(w, errMapNotFound())
		return
	}

	randomizeSpawn := s.randomizeSpawn
	result, err := s.coord.Submit(r.Context(), func(w *world.World, reg *players.Registry) (any, error) {
		m := w.Maps[req.MapID]
		var spawn geom.Point
		if randomizeSpawn {
			spawn = m.RandomRoadPoint(w.RandomGen)
		} else {
			spawn = m.InitialPoint()
		}
		return reg.Join(req.UserName, req.MapID, spawn, m.BagCapacity)
	})
	if err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	p := result.(*players.Player)
	respondJSON(w, http.StatusOK, map[string]any{
		"authToken": p.Token,
		"playerId":  p.ID,
	})
}

// authenticate extracts and validates the bearer token, looking the player
// up on the strand. Returns nil and writes the error response on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *players.Player {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		respondError(w, errInvalidToken())
		return nil
	}
	token := strings.TrimPrefix(header, prefix)
	if len(token) != 32 {
		respondError(w, errInvalidToken())
		return nil
	}

	result, err := s.coord.Submit(r.Context(), func(_ *world.World, reg *players.Registry) (any, error) {
		return reg.Lookup(token), nil
	})
	if err != nil {
		respondError(w, errInvalidToken())
		return nil
	}
	p, _ := result.(*players.Player)
	if p == nil {
		respondError(w, errUnknownToken())
		return nil
	}
	return p
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	caller := s.authenticate(w, r)
	if caller == nil {
		return
	}
	result, err := s.coord.Submit(r.Context(), func(_ *world.World, reg *players.Registry) (any, error) {
		on := reg.PlayersOnMap(caller.MapID)
		out := make(map[int]map[string]string, len(on))
		for _, p := range on {
			out[p.ID] = map[string]string{"name": p.Name}
		}
		return out, nil
	})
	if err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	caller := s.authenticate(w, r)
	if caller == nil {
		return
	}
	result, err := s.coord.Submit(r.Context(), func(wd *world.World, reg *players.Registry) (any, error) {
		on := reg.PlayersOnMap(caller.MapID)
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
		if m, ok := wd.Maps[caller.MapID]; ok {
			for _, item := range m.LootList() {
				lost[item.ID] = map[string]any{
					"type": item.KindIndex,
					"pos":  [2]float64{item.Position.X, item.Position.Y},
				}
			}
		}

		return map[string]any{"players": playersOut, "lostObjects": lost}, nil
	})
	if err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	caller := s.authenticate(w, r)
	if caller == nil {
		return
	}

	var req struct {
		Move string `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errInvalidArgument("malformed JSON body"))
		return
	}
	switch req.Move {
	case "L", "R", "U", "D", "":
	default:
		respondError(w, errInvalidArgument("unknown move: "+req.Move))
		return
	}

	_, err := s.coord.Submit(r.Context(), func(wd *world.World, reg *players.Registry) (any, error) {
		p := reg.Lookup(caller.Token)
		if p == nil {
			return nil, nil
		}
		m := wd.Maps[p.MapID]
		applyMove(p.Dog, req.Move, m.DogSpeed)
		return nil, nil
	})
	if err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{})
}

func applyMove(d *players.Dog, move string, speed float64) {
	switch move {
	case "L":
		d.Velocity = geom.Vector{X: -speed, Y: 0}
		d.Direction = players.DirLeft
	case "R":
		d.Velocity = geom.Vector{X: speed, Y: 0}
		d.Direction = players.DirRight
	case "U":
		d.Velocity = geom.Vector{X: 0, Y: -speed}
		d.Direction = players.DirUp
	case "D":
		d.Velocity = geom.Vector{X: 0, Y: speed}
		d.Direction = players.DirDown
	case "":
		d.Velocity = geom.Vector{}
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.autoTickMode {
		respondMethodNotAllowed(w, "")
		return
	}

	var req struct {
		TimeDelta int64 `json:"timeDelta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errInvalidArgument("malformed JSON body"))
		return
	}
	if req.TimeDelta <= 0 {
		respondError(w, errInvalidArgument("timeDelta must be > 0"))
		return
	}

	dt := timeDeltaToDuration(req.TimeDelta)
	if err := s.coord.Tick(r.Context(), dt, s.sim.Tick); err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{})
}

// timeDeltaToDuration interprets the request's timeDelta as milliseconds,
// matching the simulator's Δt-in-milliseconds contract (C5 §4.5).
func timeDeltaToDuration(timeDeltaMs int64) time.Duration {
	return time.Duration(timeDeltaMs) * time.Millisecond
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := 0
	if v := q.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, errInvalidArgument("start must be a non-negative integer"))
			return
		}
		start = n
	}
	maxItems := 100
	if v := q.Get("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, errInvalidArgument("maxItems must be in (0,100]"))
			return
		}
		maxItems = n
	}

	recs, err := s.records.Records(r.Context(), start, maxItems)
	if err != nil {
		respondError(w, errInvalidArgument(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, recs)
}
