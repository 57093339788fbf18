package core

import "errors"

var (
	// ErrSessionClosed is returned when a command arrives after the session closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownCommand is returned for a command kind the controller does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrHubClosed is returned by Open once the hub is shutting down.
	ErrHubClosed = errors.New("hub closed")
)
