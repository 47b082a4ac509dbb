// Package hub provides a websocket broadcast hub for live CSI frame
// streaming, using the channel-based fan-out pattern: one Run loop owns the
// client set, clients that cannot keep up with the frame rate are dropped
// rather than allowed to stall the broadcast.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message (frames, status updates).
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (packed frame batches).
	BinaryMessage
)

// Message is one payload to broadcast to every connected client.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
