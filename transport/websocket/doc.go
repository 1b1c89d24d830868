// Package websocket provides a supplementary live-view push channel for
// the scavenger game.
//
// The websocket package implements:
//   - A per-map broadcast hub, keyed by map id
//   - Automatic state push of every map after each periodic (server-driven)
//     tick; ticks requested through /api/v1/game/tick push nothing
//   - Connection lifecycle management (register/unregister, keepalive pings)
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages every
// WebSocket connection, grouped by the map id each client subscribed to.
// Each connection is handled by a dedicated pair of goroutines (readPump,
// writePump) for reading, writing, and cleanup.
//
// Message Protocol:
//
// Messages are JSON-encoded: {"mapId": "...", "event": "state_update",
// "state": {...}}. Clients do not send commands over this channel -- it is
// receive-only; gameplay still goes through the HTTP API.
//
// Map Subscription:
//
// Connections subscribe to a single map via a query parameter
// (?mapId=town) when establishing the connection. Each map's state push is
// broadcast only to clients subscribed to that map; every map is pushed on
// each periodic tick, whether or not it changed.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/api/v1/game/live", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("mapId"))
//	})
//
// Connection Lifecycle:
//
//  1. Client dials with a mapId query parameter
//  2. Connection registered with the hub under that map
//  3. Client receives a state_update message after every periodic tick
//  4. Disconnection triggers cleanup and unregistration
//
// Concurrency:
//
// The hub's register/unregister/broadcast loop runs on its own goroutine,
// so concurrent client connects, disconnects, and broadcasts never race
// each other.
package websocket
