package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

// Events generated by the feed itself. Every other event type comes from the
// match service.
const (
	EventSnapshot = "snapshot" // sent right after a subscribe
	EventError    = "error"    // reply to a message the feed cannot honor
)

// ClientMessage is the only shape a spectator may send.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	MatchID string `json:"match_id"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectating is anonymous and read-only
	},
}

// WSHandler handles spectator WebSocket connections.
type WSHandler struct {
	hub       *Hub
	snapshots SnapshotSource
}

// NewWSHandler creates a WSHandler. snapshots may be nil, in which case new
// subscribers only see events from that point on.
func NewWSHandler(hub *Hub, snapshots SnapshotSource) *WSHandler {
	return &WSHandler{hub: hub, snapshots: snapshots}
}

// ServeWS handles GET /ws and upgrades to WebSocket. Spectators are anonymous;
// the only messages they may send are subscribe and unsubscribe.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	// Send a welcome message so the client can confirm the connection is live.
	welcome, _ := json.Marshal(WSEvent{Type: "connected", Data: map[string]any{}})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("remote", client.remote).Int("total", h.hub.ConnectionCount()).Msg("Spectator connected")

	// A match can be named up front: /ws?match=<id>.
	if id := r.URL.Query().Get("match"); id != "" {
		h.subscribe(client, id)
	}
}

func (h *WSHandler) subscribe(c *WSConn, matchID string) {
	h.hub.Subscribe(c, matchID)
	if h.snapshots == nil {
		return
	}
	if snap, ok := h.snapshots.Snapshot(matchID); ok {
		h.reply(c, WSEvent{Type: EventSnapshot, MatchID: matchID, Data: snap})
	}
}

// reply queues event for c alone. It holds the hub's read lock so it cannot
// race Unregister closing the queue.
func (h *WSHandler) reply(c *WSConn, event WSEvent) {
	data, ok := encodeEvent(event)
	if !ok {
		return
	}
	h.hub.mu.RLock()
	defer h.hub.mu.RUnlock()
	c.enqueue(data, event.MatchID)
}

// readPump reads spectator messages until the connection drops.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("remote", c.remote).Msg("Spectator disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("remote", c.remote).Msg("Spectator connection closed unexpectedly")
			}
			return
		}
		h.handleMessage(c, raw)
	}
}

// handleMessage applies one client message. Anything other than a
// subscribe or unsubscribe naming a match gets an error event back.
func (h *WSHandler) handleMessage(c *WSConn, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, WSEvent{Type: EventError, Data: map[string]string{"error": "malformed message"}})
		return
	}
	if msg.MatchID == "" {
		h.reply(c, WSEvent{Type: EventError, Data: map[string]string{"error": "match_id is required"}})
		return
	}

	switch msg.Action {
	case "subscribe":
		h.subscribe(c, msg.MatchID)
	case "unsubscribe":
		h.hub.Unsubscribe(c, msg.MatchID)
	default:
		log.Debug().Str("remote", c.remote).Str("action", msg.Action).Msg("Ignoring spectator action")
		h.reply(c, WSEvent{
			Type:    EventError,
			MatchID: msg.MatchID,
			Data:    map[string]string{"error": "spectators may only subscribe or unsubscribe"},
		})
	}
}

// writePump sends queued events, batching whatever is waiting into one
// newline-separated frame, and keeps the connection alive with pings.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeBatch(c, first); err != nil {
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

func writeBatch(c *WSConn, first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for pending := len(c.send); pending > 0; pending-- {
		next, ok := <-c.send
		if !ok {
			break
		}
		w.Write([]byte{'\n'})
		w.Write(next)
	}
	return w.Close()
}
