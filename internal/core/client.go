package core

// Conn is the write side of a client connection as seen by the core layer.
// Send must not block: it returns false when the connection cannot take the
// frame right now (closing, or its outbound queue is full).
type Conn interface {
	Send(data []byte) bool
}

// Client is a registered participant.
type Client struct {
	ID   string
	Name string
	Conn Conn
}
