package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRename changes the client's display name.
	CommandRename CommandKind = iota
	// CommandChat posts a chat message (or a bot question).
	CommandChat
	// CommandTyping signals the client is composing.
	CommandTyping
)

func (k CommandKind) String() string {
	switch k {
	case CommandRename:
		return "rename"
	case CommandChat:
		return "chat"
	case CommandTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
// Name is used by CommandRename, Text by CommandChat.
type Command struct {
	Kind CommandKind
	Name string
	Text string
}
