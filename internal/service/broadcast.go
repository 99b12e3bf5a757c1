package service

// Broadcaster publishes match events to spectators. The WebSocket hub
// implements it; data is always JSON-encodable.
type Broadcaster interface {
	BroadcastGameEvent(matchID string, eventType string, data any)
}

// NoopBroadcaster drops every event. NewMatchService falls back to it when
// no broadcaster is given.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
