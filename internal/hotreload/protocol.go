// Package hotreload implements the development reload channel: a websocket
// hub that broadcasts change notifications to every open tab, and the client
// that applies them to a window with bounded reconnects.
package hotreload

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the type of a frame on the reload channel.
type MessageType string

const (
	TypeConnected MessageType = "connected"
	TypeReload    MessageType = "reload"
	TypeCSSReload MessageType = "css-reload"
	TypeError     MessageType = "error"
)

// Message is one JSON frame.
type Message struct {
	Type      MessageType `json:"type"`
	Reason    string      `json:"reason,omitempty"`
	Message   string      `json:"message,omitempty"`
	ID        string      `json:"id,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// Reload asks clients to refresh the current page.
func Reload(reason string) Message {
	return Message{Type: TypeReload, Reason: reason, Timestamp: time.Now().UnixMilli()}
}

// CSSReload asks clients to reload their stylesheets.
func CSSReload() Message {
	return Message{Type: TypeCSSReload, Timestamp: time.Now().UnixMilli()}
}

// Error asks clients to show message in a banner.
func Error(message string) Message {
	return Message{Type: TypeError, Message: message, Timestamp: time.Now().UnixMilli()}
}

// Connected greets a client with its id.
func Connected(id string) Message {
	return Message{Type: TypeConnected, ID: id, Timestamp: time.Now().UnixMilli()}
}

// Decode parses a frame and rejects unknown types.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}

	switch msg.Type {
	case TypeConnected, TypeReload, TypeCSSReload, TypeError:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("decode frame: unknown type %q", msg.Type)
	}
}
