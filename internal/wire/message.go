// Package wire defines the JSON frames exchanged with the relay server.
package wire

import (
	"encoding/json"
	"fmt"
)

// Message type discriminators.
const (
	// TypeStartSharing opens a presenter session (client -> server).
	TypeStartSharing = "START_SHARING"
	// TypeSessionStarted acknowledges a presenter session and carries the
	// server-assigned session id (server -> client).
	TypeSessionStarted = "SESSION_STARTED"
	// TypeStartWatching subscribes to an existing session (client -> server).
	TypeStartWatching = "START_WATCHING"
	// TypeNewAction relays one domain action (presenter -> server). The server
	// forwards only the unwrapped inner action to watchers.
	TypeNewAction = "NEW_ACTION"
)

// Message is the tagged union framing every relay exchange.
type Message struct {
	// Type is the message discriminator.
	Type string `json:"type"`
	// ID is the session identifier. Set for SESSION_STARTED and START_WATCHING.
	ID string `json:"id,omitempty"`
	// InnerAction is the relayed action descriptor. Set for NEW_ACTION.
	InnerAction json.RawMessage `json:"innerAction,omitempty"`
}

// StartSharing builds a presenter handshake frame.
func StartSharing() Message {
	return Message{Type: TypeStartSharing}
}

// SessionStarted builds the server's presenter acknowledgement.
func SessionStarted(id string) Message {
	return Message{Type: TypeSessionStarted, ID: id}
}

// StartWatching builds a watcher handshake frame.
func StartWatching(id string) Message {
	return Message{Type: TypeStartWatching, ID: id}
}

// NewAction wraps an action descriptor for relay.
func NewAction(inner json.RawMessage) Message {
	return Message{Type: TypeNewAction, InnerAction: inner}
}

// Encode serializes a message for the channel.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a frame and validates the fields its type requires.
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	switch m.Type {
	case TypeStartSharing:
	case TypeSessionStarted, TypeStartWatching:
		if m.ID == "" {
			return Message{}, fmt.Errorf("%s missing id", m.Type)
		}
	case TypeNewAction:
		if len(m.InnerAction) == 0 {
			return Message{}, fmt.Errorf("%s missing innerAction", m.Type)
		}
	case "":
		return Message{}, fmt.Errorf("frame missing type")
	default:
		return Message{}, fmt.Errorf("unknown frame type %q", m.Type)
	}
	return m, nil
}
