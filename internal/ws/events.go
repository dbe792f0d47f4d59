package ws

import (
	"encoding/json"
	"time"
)

// Event types pushed to subscribers.
const (
	EventGraphReloaded = "graph.reloaded"
	eventShutdown      = "shutdown"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ReloadedData is the payload of a graph.reloaded event.
type ReloadedData struct {
	Epoch            uint64 `json:"epoch"`
	TotalParcels     int    `json:"totalParcels"`
	TotalConnections int    `json:"totalConnections"`
}
