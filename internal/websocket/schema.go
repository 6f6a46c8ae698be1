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
	EventError       Event = "error"
	EventPong        Event = "pong"
	EventTimeSync    Event = "time_sync"
	EventForceFinish Event = "force_finish"
)

// CloseReasonCompleted is the close-frame text sent once the attempt has
// been finished. Clients should not reconnect after it.
const CloseReasonCompleted = "completed"

// EventEnvelope is used to peek at the event before full parsing.
type EventEnvelope struct {
	Event Event `json:"event"`
}

// TimeSyncEvent carries the server's view of the remaining time.
type TimeSyncEvent struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// ForceFinishEvent tells the client the attempt must end now.
type ForceFinishEvent struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
