package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// SessionState is the lifecycle stage of a connection.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the controller for one connection. Handle must be called from a
// single goroutine so commands are processed in arrival order.
type Session struct {
	ID    string
	hub   *Hub
	state atomic.Int32
}

// State reports the current lifecycle stage.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Name returns the session's current display name.
func (s *Session) Name() string {
	return s.hub.registry.Name(s.ID)
}

// Handle dispatches one inbound command.
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	if s.State() != StateOpen {
		return ErrSessionClosed
	}

	switch cmd.Kind {
	case CommandRename:
		if s.hub.registry.Rename(s.ID, cmd.Name) {
			s.hub.log.Info().Str("client_id", s.ID).Str("username", s.Name()).Msg("client renamed")
		}
	case CommandTyping:
		s.hub.broadcaster.NotifyTypingExcept(s.ID, s.Name())
	case CommandChat:
		s.handleChat(ctx, cmd.Text)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

func (s *Session) handleChat(ctx context.Context, raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	author := s.Name()
	if question, ok := matchTrigger(text, s.hub.opts.BotTrigger); ok {
		s.hub.askBot(ctx, author, question)
		return
	}
	s.hub.publish(ctx, author, text)
}

// Close deregisters the session. Pending bot replies are left to finish.
// Calling Close more than once is a no-op.
func (s *Session) Close() {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
		return
	}
	s.hub.registry.Deregister(s.ID)
	s.hub.metrics.ConnectionClosed()
	s.hub.sessions.Done()
	s.hub.log.Info().Str("client_id", s.ID).Int("online", s.hub.registry.Len()).Msg("client disconnected")
}
