package bot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type    string         `json:"type"`
	MatchID string         `json:"match_id"`
	Data    map[string]any `json:"data"`
}

// Client is an HTTP+WebSocket client for a spectator server.
type Client struct {
	name     string
	baseURL  string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a new spectator client targeting the given server URL.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the client name used in logs.
func (c *Client) Name() string { return c.name }

// Health checks that the server is up.
func (c *Client) Health() error {
	var status map[string]string
	if err := c.getJSON("/healthz", &status); err != nil {
		return err
	}
	if status["status"] != "ok" {
		return fmt.Errorf("server status %q", status["status"])
	}
	return nil
}

// GetMatch fetches a live snapshot or archived record.
func (c *Client) GetMatch(matchID string) (map[string]any, error) {
	var m map[string]any
	if err := c.getJSON("/matches/"+url.PathEscape(matchID), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LiveMatches lists the IDs of matches that can be watched now.
func (c *Client) LiveMatches() ([]string, error) {
	var resp struct {
		Matches []string `json:"matches"`
	}
	if err := c.getJSON("/live", &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// RecentMatches lists the newest archived matches.
func (c *Client) RecentMatches(limit int) ([]map[string]any, error) {
	var list []map[string]any
	if err := c.getJSON(fmt.Sprintf("/matches?limit=%d", limit), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Standings fetches the leaderboard.
func (c *Client) Standings() ([]map[string]any, error) {
	var rows []map[string]any
	if err := c.getJSON("/standings", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ConnectWS opens a WebSocket connection and starts listening for events.
// A non-empty matchID subscribes to that match as part of the handshake.
func (c *Client) ConnectWS(matchID string) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"
	if matchID != "" {
		wsURL += "?match=" + url.QueryEscape(matchID)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// Subscribe sends a subscribe message for the given match.
func (c *Client) Subscribe(matchID string) error {
	return c.send("subscribe", matchID)
}

// Unsubscribe stops events for the given match.
func (c *Client) Unsubscribe(matchID string) error {
	return c.send("unsubscribe", matchID)
}

func (c *Client) send(action, matchID string) error {
	msg := map[string]string{"action": action, "match_id": matchID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events. It is closed when
// the connection drops.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("client", c.name).Msg("WS read error")
			}
			return
		}
		// The server batches queued events into one frame, one per line.
		for _, line := range bytes.Split(msg, []byte("\n")) {
			var event WSEvent
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			c.events <- event
		}
	}
}

func (c *Client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
