// Command gameserver starts the scavenger game server: the HTTP/JSON API,
// a supplementary websocket live-view push, and an MCP tool surface for AI
// agents, all driven by a single-writer coordinator strand that ticks the
// simulation either on a fixed period or on demand via /api/v1/game/tick.
//
// Flags control the map config file, tick period, snapshot persistence,
// spawn randomization, and optional ngrok tunneling for easy external
// access during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/scavenger-game-server/api"
	"github.com/wricardo/scavenger-game-server/internal/applog"
	"github.com/wricardo/scavenger-game-server/internal/config"
	"github.com/wricardo/scavenger-game-server/internal/coordinator"
	"github.com/wricardo/scavenger-game-server/internal/players"
	"github.com/wricardo/scavenger-game-server/internal/retirement"
	"github.com/wricardo/scavenger-game-server/internal/sim"
	"github.com/wricardo/scavenger-game-server/internal/snapshot"
	"github.com/wricardo/scavenger-game-server/transport/mcp"
	"github.com/wricardo/scavenger-game-server/transport/websocket"
)

const (
	Version = "1.0.0"
	AppName = "Scavenger Game Server"
)

var (
	host                 = flag.String("host", "localhost", "HTTP server host")
	port                 = flag.Int("port", 8080, "HTTP server port")
	configFile           = flag.String("config-file", "configs/maps.json", "Path to the map/loot configuration JSON document")
	wwwRoot              = flag.String("www-root", "", "Directory of static files to serve at / (disabled when empty)")
	tickPeriod           = flag.Duration("tick-period", 0, "Period of the server-driven tick loop; when 0, /api/v1/game/tick is enabled instead")
	stateFile            = flag.String("state-file", "state.gob", "Path to the snapshot file used to persist and restore world/player state")
	saveStatePeriod      = flag.Duration("save-state-period", 30*time.Second, "How often the running simulation is snapshotted to --state-file")
	randomizeSpawnPoints = flag.Bool("randomize-spawn-points", false, "Spawn newly joined players at a random point on a road instead of the map's initial point")
	mcpStdio             = flag.Bool("mcp-stdio", false, "Run as an MCP stdio server proxying to an already-running HTTP server at --host:--port, instead of serving HTTP")
	ngrokEnabled         = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth            = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain          = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  GAME_DB_URL   Postgres connection string for the retirement leaderboard (required)\n")
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		applog.Warnf("error loading .env file: %v", err)
	}

	flag.Parse()

	if *mcpStdio {
		runStdioMCP()
		return
	}

	applog.Infof("starting %s v%s", AppName, Version)

	dbURL := os.Getenv("GAME_DB_URL")
	if dbURL == "" {
		applog.Fatalf("GAME_DB_URL environment variable is required")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	cfg, err := config.Load(*configFile, rng)
	if err != nil {
		applog.Fatalf("failed to load config: %v", err)
	}
	cfg.RandomizeSpawn = *randomizeSpawnPoints

	reg := players.NewRegistry()
	store := snapshot.NewStore(*stateFile)
	if err := store.Restore(cfg.World, reg); err != nil {
		applog.Warnf("failed to restore snapshot from %s: %v", *stateFile, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := retirement.Open(ctx, dbURL)
	if err != nil {
		applog.Fatalf("failed to open retirement sink: %v", err)
	}
	defer sink.Close()

	coord := coordinator.New(cfg.World, reg)
	var coordWg sync.WaitGroup
	coordWg.Add(1)
	go func() {
		defer coordWg.Done()
		coord.Run(ctx)
	}()

	hub := websocket.NewHub()
	go hub.Run()

	snapTrigger := newSnapshotTrigger(coord, store)
	go snapTrigger.run(ctx)

	simulator := sim.New(cfg.LootGenerators, sink, snapTrigger, *saveStatePeriod)

	autoTickMode := *tickPeriod > 0
	apiServer := api.NewServer(coord, simulator, cfg.World.Maps, cfg.RandomizeSpawn, autoTickMode, sink)

	if autoTickMode {
		coord.StartTicker(ctx, *tickPeriod, broadcastingTick(simulator, hub, cfg.World.Maps))
		applog.Infof("auto-tick enabled, period=%s; /api/v1/game/tick is disabled", *tickPeriod)
	} else {
		applog.Infof("auto-tick disabled; drive simulation via POST /api/v1/game/tick")
	}

	mainRouter := mux.NewRouter()
	// More specific routes must be registered before the /api/ catch-all:
	// mux matches in registration order.
	mainRouter.HandleFunc("/api/v1/game/live", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("mapId"))
	})
	mainRouter.PathPrefix("/api/").Handler(apiServer)

	proxy := mcp.NewProxy(fmt.Sprintf("http://%s:%d", *host, *port), !autoTickMode)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(proxy))

	if *wwwRoot != "" {
		mainRouter.PathPrefix("/").Handler(http.FileServer(http.Dir(*wwwRoot)))
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		applog.Infof("HTTP server listening on %s", addr)
		applog.Infof("REST API: http://%s/api/v1", addr)
		applog.Infof("live view: ws://%s/api/v1/game/live?mapId=<id>", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if shouldRunNgrok() {
		wg.Add(1)
		go runNgrokTunnel(ctx, &wg, mainRouter)
	}

	sig := <-stop
	applog.Infof("received signal: %v, shutting down", sig)

	// Stop new task intake before the final snapshot so Store.Write observes
	// a quiescent World/Registry.
	cancel()
	coordWg.Wait()

	if err := store.Write(cfg.World, reg); err != nil {
		applog.Warnf("failed to write final snapshot: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sink.Drain(shutdownCtx)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		applog.Warnf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	applog.Infof("server stopped")
}

func shouldRunNgrok() bool {
	if *ngrokEnabled {
		return true
	}
	v := os.Getenv("NGROK_ENABLED")
	return v == "true" || v == "1"
}

func runNgrokTunnel(ctx context.Context, wg *sync.WaitGroup, handler http.Handler) {
	defer wg.Done()

	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		applog.Warnf("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		applog.Warnf("failed to start ngrok tunnel: %v", err)
		return
	}
	defer tun.Close()

	applog.Infof("ngrok tunnel established: %s", tun.URL())

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		applog.Warnf("ngrok server error: %v", err)
	}
}
