package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
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

// ReadRaw reads one message, decodes it into the envelope to expose the
// action, and returns the raw bytes for a second action-specific decode.
func ReadRaw(conn *websocket.Conn, envelope interface{}) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return raw, nil
}

// DecodeRaw decodes raw bytes returned by ReadRaw into a request structure.
func DecodeRaw(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}
