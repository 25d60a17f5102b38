// Package hub fans messages out to websocket clients over channels.
// Slow clients are dropped rather than allowed to stall the broadcaster.
package hub

import (
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
)

// Message is one payload for websocket clients. Status updates go out as
// JSON text frames, overlay previews as binary JPEG frames.
type Message struct {
	Data   []byte
	Binary bool
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Data: data}
}

// Frame wraps an encoded image.
func Frame(data []byte) Message {
	return Message{Data: data, Binary: true}
}

// Encode marshals v into a text message.
func Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Text(data), nil
}

// opcode returns the websocket frame type for m.
func (m Message) opcode() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// delivery addresses a message to a single client.
type delivery struct {
	client *Client
	msg    Message
}
