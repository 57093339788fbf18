package core

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/relaychat/internal/metrics"
)

// Broadcaster pushes events to the clients currently in the registry.
// All fan-outs are serialized, so every recipient observes one global order.
type Broadcaster struct {
	mu       sync.Mutex
	registry *Registry
	log      *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewBroadcaster builds a broadcaster reading recipients from registry.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		log:      logger,
		metrics:  m,
	}
}

// BroadcastChat delivers msg to every writable connection.
// Returns the number of connections that accepted it.
func (b *Broadcaster) BroadcastChat(msg Message) int {
	return b.fanOut(chatEvent(msg), "")
}

// BroadcastTyping shows username as typing to everyone, or clears the indicator when nil.
func (b *Broadcaster) BroadcastTyping(username *string) int {
	return b.fanOut(typingEvent(username), "")
}

// NotifyTypingExcept shows username as typing to everyone but the client it came from.
func (b *Broadcaster) NotifyTypingExcept(clientID, username string) int {
	return b.fanOut(typingEvent(&username), clientID)
}

func (b *Broadcaster) fanOut(event Event, skipID string) int {
	data, err := event.Encode()
	if err != nil {
		b.log.Error().Err(err).Stringer("event", event.Kind).Msg("encode event")
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	b.registry.ForEach(func(id, _ string, conn Conn) {
		if id == skipID {
			return
		}
		ok := conn.Send(data)
		b.metrics.Delivery(event.Kind.String(), ok)
		if !ok {
			// Not writable right now; best effort, no retry.
			b.log.Debug().Str("client_id", id).Stringer("event", event.Kind).Msg("skip unwritable connection")
			return
		}
		delivered++
	})
	return delivered
}
