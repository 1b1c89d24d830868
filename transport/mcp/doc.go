// Package mcp exposes the scavenger game's HTTP/JSON API as Model Context
// Protocol tools, so an AI agent can join a map and play the dog via MCP
// tool calls instead of hand-rolled HTTP requests.
//
// The mcp package implements:
//   - An MCP server for AI agent integration (github.com/mark3labs/mcp-go)
//   - A thin proxy that turns every tool call into one REST call against
//     the api package's HTTP contract
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - join: Join a map with a display name, returns an auth token
//   - move: Set the dog's current heading (left/right/up/down/none)
//   - state: Get the current positions, bags, scores, and loose loot on the map
//   - players: List the other players sharing the caller's map
//   - tick: Advance simulated time by a duration; only registered when the
//     server is not already running its own ticker
//   - records: Page through the retired-player leaderboard
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: HTTP endpoint for remote MCP integration
//
// Authentication:
//
// All tools except join, tick and records take an authToken parameter obtained
// from a prior join call and forward it as a bearer token on the proxied
// request.
//
// Usage:
//
//	proxy := mcp.NewProxy("http://localhost:8080", includeTick)
//	server.ServeStdio(proxy.GetMCPServer())
package mcp
