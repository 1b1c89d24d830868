package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestNewProxy(t *testing.T) {
	baseURL := "http://localhost:8080"
	proxy := NewProxy(baseURL, true)

	if proxy == nil {
		t.Fatal("expected proxy to be created")
	}
	if proxy.baseURL != baseURL {
		t.Errorf("baseURL = %s, want %s", proxy.baseURL, baseURL)
	}
	if proxy.httpClient == nil {
		t.Error("expected HTTP client to be initialized")
	}
	if proxy.mcpServer == nil {
		t.Error("expected MCP server to be initialized")
	}
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected non-empty result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("expected text content in result")
	}
	return tc.Text
}

func TestProxy_apiCall(t *testing.T) {
	expected := map[string]interface{}{"authToken": "abc", "playerId": float64(1)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expected)
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)

	var resp map[string]interface{}
	if err := proxy.apiCall(http.MethodGet, "/api/v1/game/state", "tok", nil, &resp); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if resp["authToken"] != expected["authToken"] {
		t.Errorf("authToken = %v, want %v", resp["authToken"], expected["authToken"])
	}
}

func TestProxy_apiCall_ForwardsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	_ = proxy.apiCall(http.MethodGet, "/api/v1/game/state", "mytoken", nil, nil)

	if gotAuth != "Bearer mytoken" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer mytoken")
	}
}

func TestProxy_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"code": "unknownToken", "message": "player token is unknown"})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	err := proxy.apiCall(http.MethodGet, "/api/v1/game/state", "bad", nil, nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "unknownToken") {
		t.Errorf("expected error to mention unknownToken, got: %v", err)
	}
}

func TestProxy_handleJoin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/game/join" {
			t.Errorf("expected POST /api/v1/game/join, got %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"authToken": "deadbeef", "playerId": 7})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	result, err := proxy.handleJoin(context.Background(), toolRequest("join", map[string]interface{}{
		"userName": "alice", "mapId": "town",
	}))
	if err != nil {
		t.Fatalf("handleJoin failed: %v", err)
	}
	text := textOf(t, result)
	if !strings.Contains(text, "deadbeef") || !strings.Contains(text, "player 7") {
		t.Errorf("unexpected join result: %s", text)
	}
}

func TestProxy_handleMove(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	result, err := proxy.handleMove(context.Background(), toolRequest("move", map[string]interface{}{
		"authToken": "tok", "move": "L",
	}))
	if err != nil {
		t.Fatalf("handleMove failed: %v", err)
	}
	if gotBody["move"] != "L" {
		t.Errorf("move = %q, want L", gotBody["move"])
	}
	_ = textOf(t, result)
}

func TestProxy_handleState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"players": map[string]interface{}{}})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	result, err := proxy.handleState(context.Background(), toolRequest("state", map[string]interface{}{"authToken": "tok"}))
	if err != nil {
		t.Fatalf("handleState failed: %v", err)
	}
	if !strings.Contains(textOf(t, result), "players") {
		t.Errorf("expected players key in rendered state")
	}
}

func TestProxy_handleTick(t *testing.T) {
	var gotBody map[string]int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/game/tick" {
			t.Errorf("path = %s, want /api/v1/game/tick", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	_, err := proxy.handleTick(context.Background(), toolRequest("tick", map[string]interface{}{"timeDelta": float64(250)}))
	if err != nil {
		t.Fatalf("handleTick failed: %v", err)
	}
	if gotBody["timeDelta"] != 250 {
		t.Errorf("timeDelta = %d, want 250", gotBody["timeDelta"])
	}
}

func TestProxy_handleRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxItems"); got != "10" {
			t.Errorf("maxItems = %q, want 10", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{{"name": "bob", "score": 5}})
	}))
	defer server.Close()

	proxy := NewProxy(server.URL, true)
	result, err := proxy.handleRecords(context.Background(), toolRequest("records", map[string]interface{}{"maxItems": float64(10)}))
	if err != nil {
		t.Fatalf("handleRecords failed: %v", err)
	}
	if !strings.Contains(textOf(t, result), "bob") {
		t.Errorf("expected leaderboard entry in output, got: %s", textOf(t, result))
	}
}

func TestProxy_TickToolGatedByIncludeTick(t *testing.T) {
	withTick := NewProxy("http://localhost:8080", true)
	withoutTick := NewProxy("http://localhost:8080", false)

	if withTick.mcpServer == nil || withoutTick.mcpServer == nil {
		t.Fatal("expected both proxies to initialize an MCP server")
	}

	listTools := func(p *Proxy) string {
		resp := p.GetMCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
		data, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal tools/list response: %v", err)
		}
		return string(data)
	}
	if !strings.Contains(listTools(withTick), `"name":"tick"`) {
		t.Errorf("tick tool should be registered when includeTick is true")
	}
	if strings.Contains(listTools(withoutTick), `"name":"tick"`) {
		t.Errorf("tick tool should not be registered when includeTick is false")
	}
}
