package core

import (
	"fmt"

	"github.com/vovakirdan/relaychat/internal/proto"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChat delivers a chat message.
	EventChat EventKind = iota
	// EventTyping shows or clears the typing indicator.
	EventTyping
)

func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "chat"
	case EventTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message Message
	// Username is the typist for EventTyping; nil clears the indicator.
	Username *string
}

func chatEvent(msg Message) Event {
	return Event{Kind: EventChat, Message: msg}
}

func typingEvent(username *string) Event {
	return Event{Kind: EventTyping, Username: username}
}

// Encode serializes the event into its wire envelope.
func (e Event) Encode() ([]byte, error) {
	switch e.Kind {
	case EventChat:
		return proto.EncodeChat(e.Message.Proto())
	case EventTyping:
		return proto.EncodeTyping(e.Username)
	default:
		return nil, fmt.Errorf("encode event: unknown kind %d", e.Kind)
	}
}
