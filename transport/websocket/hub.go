// Package websocket implements a supplementary live-view push channel: a
// websocket upgrade per map that receives a state-shaped message after
// every periodic (server-driven) tick; ticks requested through
// /api/v1/game/tick push nothing. It is an additive, non-conflicting
// enrichment -- the /api/v1/game/state polling contract remains the
// client-facing source of truth. Adapted line-for-line from the register/
// unregister/broadcast channel-select loop of the teacher's Hub.Run, keyed
// by map id instead of session id and broadcasting game-state snapshots
// instead of engine.GameState.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is pushed to every client subscribed to a map after a tick.
type Message struct {
	MapID string `json:"mapId"`
	Event string `json:"event,omitempty"`
	State any    `json:"state,omitempty"`
}

// Client is one subscribed websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	mapID string
}

// Hub maintains the set of clients subscribed per map and broadcasts state
// pushes to them.
type Hub struct {
	maps map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
}

// NewHub returns an unstarted Hub; call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		maps:       make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the connection and subscribes it to mapID's state pushes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, mapID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		mapID: mapID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastState pushes a state snapshot to every client subscribed to
// mapID. Invoked by the simulator's post-tick hook, itself run on the
// strand -- the send only blocks on this unbuffered channel until the hub's
// own goroutine picks it up, never on a client socket.
func (h *Hub) BroadcastState(mapID string, state any) {
	h.broadcast <- &Message{MapID: mapID, Event: "state_update", State: state}
}

// registerClient adds a client to a map's subscriber set.
func (h *Hub) registerClient(client *Client) {
	if h.maps[client.mapID] == nil {
		h.maps[client.mapID] = make(map[*Client]bool)
	}
	h.maps[client.mapID][client] = true
}

// unregisterClient removes a client from a map's subscriber set.
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.maps[client.mapID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.maps, client.mapID)
			}
		}
	}
}

// broadcastMessage sends a message to all clients subscribed to its map.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("websocket: failed to marshal broadcast message: %v", err)
		return
	}

	if clients, ok := h.maps[message.MapID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients do not send commands over this channel; just keep the
		// connection alive and detect disconnects.
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
