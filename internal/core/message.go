package core

import (
	"time"

	"github.com/samber/lo"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/utils"
)

// Message is the domain model for a chat message. Once persisted it is immutable.
type Message struct {
	ID        string
	Username  string
	Text      string
	Timestamp time.Time
}

func newMessage(username, text string, at time.Time) Message {
	return Message{
		ID:        utils.NewMessageID(),
		Username:  username,
		Text:      text,
		Timestamp: at.UTC(),
	}
}

func (m Message) toStore() *store.Message {
	return &store.Message{
		ID:        m.ID,
		Username:  m.Username,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}

// Proto converts the message into its wire shape.
func (m Message) Proto() proto.Message {
	return proto.Message{
		ID:        m.ID,
		Username:  m.Username,
		Text:      m.Text,
		Timestamp: store.FormatTimestamp(m.Timestamp),
	}
}

func messagesFromStore(rows []*store.Message) []Message {
	return lo.Map(rows, func(row *store.Message, _ int) Message {
		return Message{
			ID:        row.ID,
			Username:  row.Username,
			Text:      row.Text,
			Timestamp: row.Timestamp,
		}
	})
}
