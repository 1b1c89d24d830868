package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/scavenger-game-server/internal/applog"
	"github.com/wricardo/scavenger-game-server/transport/mcp"
)

// runStdioMCP runs an MCP stdio server proxying to an already-running HTTP
// server at --host:--port. Unlike the teacher's main.go, it does not spin
// up an internal fallback server: the game's coordinator/retirement sink
// wiring is expensive to duplicate, so --mcp-stdio is a thin client over a
// separately started `gameserver` process.
func runStdioMCP() {
	baseURL := fmt.Sprintf("http://%s:%d", *host, *port)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/maps")
	if err != nil || resp.StatusCode >= 500 {
		applog.Fatalf("no API server reachable at %s; start `gameserver` first", baseURL)
	}
	resp.Body.Close()

	proxy := mcp.NewProxy(baseURL, !(*tickPeriod > 0))

	applog.Infof("MCP stdio server ready, proxying %s", baseURL)
	if err := server.ServeStdio(proxy.GetMCPServer()); err != nil {
		applog.Fatalf("MCP stdio server error: %v", err)
	}
}
