package http

import (
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

// inboundToCommand maps a decoded client frame to a core command. Frames
// reaching here are already validated by proto.DecodeInbound.
func inboundToCommand(inbound proto.Inbound) (core.Command, bool) {
	switch inbound.Type {
	case proto.InboundTypeSetUsername:
		return core.Command{Kind: core.CommandRename, Name: deref(inbound.Username)}, true
	case proto.InboundTypeChat:
		return core.Command{Kind: core.CommandChat, Text: deref(inbound.Text)}, true
	case proto.InboundTypeTyping:
		return core.Command{Kind: core.CommandTyping}, true
	default:
		return core.Command{}, false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
