package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is the envelope for every message the feed sends.
type WSEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// WSConn is one spectator connection. subs is owned by the Hub and only
// touched under its lock.
type WSConn struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	subs   map[string]struct{}
	closed bool
}

// Hub fans match events out to the spectators watching each match.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*WSConn]struct{}
	watchers map[string]map[*WSConn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns:    make(map[*WSConn]struct{}),
		watchers: make(map[string]map[*WSConn]struct{}),
	}
}

// Register starts tracking c.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.subs = make(map[string]struct{})
	h.conns[c] = struct{}{}
}

// Unregister drops c and its subscriptions and closes its send queue.
// Calling it twice is a no-op.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	for matchID := range c.subs {
		h.unwatch(c, matchID)
	}
	delete(h.conns, c)
	c.closed = true
	close(c.send)
}

// Subscribe adds c to the watchers of matchID. Unknown connections are
// ignored.
func (h *Hub) Subscribe(c *WSConn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	set, ok := h.watchers[matchID]
	if !ok {
		set = make(map[*WSConn]struct{})
		h.watchers[matchID] = set
	}
	set[c] = struct{}{}
	c.subs[matchID] = struct{}{}
}

// Unsubscribe removes c from the watchers of matchID.
func (h *Hub) Unsubscribe(c *WSConn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unwatch(c, matchID)
}

// unwatch requires h.mu held for writing.
func (h *Hub) unwatch(c *WSConn, matchID string) {
	delete(c.subs, matchID)
	set := h.watchers[matchID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.watchers, matchID)
	}
}

// BroadcastToMatch queues event for every watcher of matchID.
func (h *Hub) BroadcastToMatch(matchID string, event WSEvent) {
	data, ok := encodeEvent(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.watchers[matchID] {
		c.enqueue(data, matchID)
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// MatchSubscriberCount returns the number of watchers of matchID.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[matchID])
}

func encodeEvent(event WSEvent) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", event.MatchID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return nil, false
	}
	return data, true
}

// enqueue never blocks; a spectator that falls behind loses events rather
// than stalling the match. The caller holds the hub lock.
func (c *WSConn) enqueue(data []byte, matchID string) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("remote", c.remote).Str("matchId", matchID).Msg("Dropping WebSocket message, buffer full")
	}
}
