package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Proxy is a thin MCP client that proxies to the REST API.
type Proxy struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewProxy creates an MCP proxy that calls the REST API at baseURL. The
// tick tool is only registered when includeTick is true, mirroring the
// server's own gate on /api/v1/game/tick when it runs its own ticker.
func NewProxy(baseURL string, includeTick bool) *Proxy {
	p := &Proxy{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	p.initMCPServer(includeTick)
	return p
}

func (p *Proxy) initMCPServer(includeTick bool) {
	p.mcpServer = server.NewMCPServer(
		"Scavenger Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Scavenger Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Walk your dog along the roads, pick up loot, and deposit it at an office to
score points. A dog that stands still too long is retired and its final
score is recorded on the leaderboard.

AVAILABLE TOOLS:
- join: Join a map, returns an authToken to use on every other tool
- move: Set your dog's heading (left/right/up/down/none)
- state: See every player's position, bag contents, score, and loose loot
- players: List who else is on your map
- tick: Advance simulated time (only available when the server does not
  already run its own ticker)
- records: Page through retired players ordered by score

Call join first and keep the returned authToken for every subsequent call.`),
	)

	p.registerTools(includeTick)
}

func (p *Proxy) registerTools(includeTick bool) {
	p.mcpServer.AddTool(mcp.Tool{
		Name:        "join",
		Description: "Join a map with a display name and receive an auth token",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"userName": map[string]interface{}{
					"type":        "string",
					"description": "Display name to join with",
				},
				"mapId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the map to join",
				},
			},
			Required: []string{"userName", "mapId"},
		},
	}, p.handleJoin)

	p.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Set the dog's current heading",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"authToken": map[string]interface{}{
					"type":        "string",
					"description": "Auth token returned by join",
				},
				"move": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"L", "R", "U", "D", ""},
					"description": "Direction to walk: L, R, U, D, or empty to stop",
				},
			},
			Required: []string{"authToken", "move"},
		},
	}, p.handleMove)

	p.mcpServer.AddTool(mcp.Tool{
		Name:        "state",
		Description: "Get the current positions, bags, scores, and loose loot for the caller's map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"authToken": map[string]interface{}{
					"type":        "string",
					"description": "Auth token returned by join",
				},
			},
			Required: []string{"authToken"},
		},
	}, p.handleState)

	p.mcpServer.AddTool(mcp.Tool{
		Name:        "players",
		Description: "List the other players sharing the caller's map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"authToken": map[string]interface{}{
					"type":        "string",
					"description": "Auth token returned by join",
				},
			},
			Required: []string{"authToken"},
		},
	}, p.handlePlayers)

	if includeTick {
		p.mcpServer.AddTool(mcp.Tool{
			Name:        "tick",
			Description: "Advance simulated time by timeDelta milliseconds",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"timeDelta": map[string]interface{}{
						"type":        "integer",
						"description": "Milliseconds of simulated time to advance",
					},
				},
				Required: []string{"timeDelta"},
			},
		}, p.handleTick)
	}

	p.mcpServer.AddTool(mcp.Tool{
		Name:        "records",
		Description: "Page through the retired-player leaderboard",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Offset into the leaderboard (default 0)",
				},
				"maxItems": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records to return (default 100, max 100)",
				},
			},
		},
	}, p.handleRecords)
}

// GetMCPServer returns the underlying MCP server for serving.
func (p *Proxy) GetMCPServer() *server.MCPServer {
	return p.mcpServer
}

func (p *Proxy) apiCall(method, path string, authToken string, body interface{}, result interface{}) error {
	url := p.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func argInt(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func (p *Proxy) handleJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	body := map[string]string{
		"userName": argString(args, "userName"),
		"mapId":    argString(args, "mapId"),
	}

	var resp struct {
		AuthToken string `json:"authToken"`
		PlayerID  int    `json:"playerId"`
	}
	if err := p.apiCall(http.MethodPost, "/api/v1/game/join", "", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Joined as player %d.\nauthToken: %s\nKeep this token, every other tool requires it.", resp.PlayerID, resp.AuthToken)
	return mcp.NewToolResultText(result), nil
}

func (p *Proxy) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	authToken := argString(args, "authToken")
	body := map[string]string{"move": argString(args, "move")}

	if err := p.apiCall(http.MethodPost, "/api/v1/game/player/action", authToken, body, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("heading set"), nil
}

func (p *Proxy) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	authToken := argString(args, "authToken")

	var state map[string]interface{}
	if err := p.apiCall(http.MethodGet, "/api/v1/game/state", authToken, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (p *Proxy) handlePlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	authToken := argString(args, "authToken")

	var players map[string]interface{}
	if err := p.apiCall(http.MethodGet, "/api/v1/game/players", authToken, nil, &players); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (p *Proxy) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	body := map[string]int64{"timeDelta": int64(argInt(args, "timeDelta", 0))}

	if err := p.apiCall(http.MethodPost, "/api/v1/game/tick", "", body, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ticked"), nil
}

func (p *Proxy) handleRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	start := argInt(args, "start", 0)
	maxItems := argInt(args, "maxItems", 100)

	path := fmt.Sprintf("/api/v1/game/records?start=%d&maxItems=%d", start, maxItems)
	var records []interface{}
	if err := p.apiCall(http.MethodGet, path, "", nil, &records); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
