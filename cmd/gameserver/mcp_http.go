package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/wricardo/scavenger-game-server/transport/mcp"
)

// mcpHTTPHandler exposes the MCP proxy's tool surface over a single HTTP
// endpoint, the same shape as the teacher's main.go /mcp handler: decode
// the JSON-RPC body, hand it to the MCP server, re-encode the response.
func mcpHTTPHandler(proxy *mcp.Proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := proxy.GetMCPServer().HandleMessage(r.Context(), body)

		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
