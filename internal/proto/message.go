package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	InboundTypeSetUsername = "setUsername"
	InboundTypeChat        = "chat"
	InboundTypeTyping      = "typing"

	OutboundTypeChat   = "chat"
	OutboundTypeTyping = "typing"
)

// ErrMalformed marks inbound frames that do not match any known envelope.
var ErrMalformed = errors.New("malformed envelope")

// Inbound is the envelope for messages coming from the client.
// Username is set for setUsername, Text for chat; typing carries neither.
type Inbound struct {
	Type     string  `json:"type"`
	Username *string `json:"username,omitempty"`
	Text     *string `json:"text,omitempty"`
}

// Message is the wire shape of a chat message.
type Message struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ChatEnvelope carries one chat message to the client.
type ChatEnvelope struct {
	Type string  `json:"type"`
	Data Message `json:"data"`
}

// TypingEnvelope announces who is typing. A nil Username is encoded as
// null and tells clients to clear any indicator.
type TypingEnvelope struct {
	Type     string  `json:"type"`
	Username *string `json:"username"`
}

// DecodeInbound parses and validates one client frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch in.Type {
	case InboundTypeSetUsername:
		if in.Username == nil {
			return Inbound{}, fmt.Errorf("%w: setUsername without username", ErrMalformed)
		}
	case InboundTypeChat:
		if in.Text == nil {
			return Inbound{}, fmt.Errorf("%w: chat without text", ErrMalformed)
		}
	case InboundTypeTyping:
	case "":
		return Inbound{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Inbound{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, in.Type)
	}
	return in, nil
}

// EncodeChat serializes a chat envelope.
func EncodeChat(msg Message) ([]byte, error) {
	return json.Marshal(ChatEnvelope{Type: OutboundTypeChat, Data: msg})
}

// EncodeTyping serializes a typing envelope; nil clears the indicator.
func EncodeTyping(username *string) ([]byte, error) {
	return json.Marshal(TypingEnvelope{Type: OutboundTypeTyping, Username: username})
}
