package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// ReadTimeout bounds how long a peer may stay silent. The server pings well
// inside it.
const ReadTimeout = 5 * time.Minute

// WriteTyped sends a strongly-typed payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	return conn.ReadJSON(v)
}

// ReadRaw reads one message and returns its event name alongside the raw
// bytes, so the caller can decode into the matching type.
func ReadRaw(conn *websocket.Conn) (Event, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", nil, err
	}
	var env EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", raw, err
	}
	return env.Event, raw, nil
}
