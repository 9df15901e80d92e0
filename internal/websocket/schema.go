package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventPong    Event = "pong"
	EventMonitor Event = "monitor"
)

// MonitorFrame wraps one live session event for an observer connection.
// Payload carries the raw event JSON as published on the monitor channel.
type MonitorFrame struct {
	Event   Event `json:"event"`
	Payload any   `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
