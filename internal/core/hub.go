package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/store"
)

// Options tune the chat controller.
type Options struct {
	DefaultUsername string
	SystemName      string
	HistoryLimit    int

	BotTrigger        string
	BotName           string
	BotFallbackText   string
	BotUsageText      string
	BotMaxTypingDelay time.Duration
}

func (o *Options) withDefaults() {
	if strings.TrimSpace(o.DefaultUsername) == "" {
		o.DefaultUsername = DefaultUsername
	}
	if o.SystemName == "" {
		o.SystemName = "System"
	}
	if o.BotTrigger == "" {
		o.BotTrigger = "/bot"
	}
	if o.BotName == "" {
		o.BotName = "Bot"
	}
	if o.BotFallbackText == "" {
		o.BotFallbackText = "Sorry, I can't answer right now."
	}
	if o.BotUsageText == "" {
		o.BotUsageText = "Usage: " + o.BotTrigger + " <question>"
	}
	if o.HistoryLimit < 0 {
		o.HistoryLimit = 0
	}
}

// Hub coordinates sessions: it owns the registry and broadcaster, persists
// messages and drives bot replies.
type Hub struct {
	opts        Options
	registry    *Registry
	broadcaster *Broadcaster
	store       store.MessageStore
	responder   Responder
	log         *zerolog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	// seq orders persist-then-broadcast and history replay into one sequence.
	seq sync.Mutex
	// closing is set under seq once Wait starts; Open refuses new sessions after.
	closing bool
	// sessions counts open sessions, botTasks pending bot replies.
	sessions sync.WaitGroup
	botTasks sync.WaitGroup
}

// NewHub creates a new chat hub instance.
func NewHub(st store.MessageStore, responder Responder, opts Options, logger *zerolog.Logger, m *metrics.Metrics) *Hub {
	opts.withDefaults()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	registry := NewRegistry(opts.DefaultUsername)
	return &Hub{
		opts:        opts,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger, m),
		store:       st,
		responder:   responder,
		log:         logger,
		metrics:     m,
		now:         time.Now,
	}
}

// Registry exposes the live client registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Metrics returns the collectors the hub records into. It may be nil.
func (h *Hub) Metrics() *metrics.Metrics {
	return h.metrics
}

// Broadcaster exposes the broadcast engine.
func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// Open registers conn and queues recent history to it (and only it).
// Registration and replay happen in the same critical section as
// persist-then-broadcast, so the client sees history then live traffic with
// no gap or overlap. Once Wait has been called Open returns ErrHubClosed.
func (h *Hub) Open(ctx context.Context, conn Conn) (*Session, error) {
	s := &Session{hub: h}
	s.state.Store(int32(StateConnecting))

	h.seq.Lock()
	if h.closing {
		h.seq.Unlock()
		return nil, ErrHubClosed
	}
	h.sessions.Add(1)
	s.ID = h.registry.Register(conn)
	h.metrics.ConnectionOpened()
	replayed := h.replay(ctx, conn)
	h.seq.Unlock()

	s.state.Store(int32(StateOpen))
	h.log.Info().Str("client_id", s.ID).Int("history", replayed).Int("online", h.registry.Len()).Msg("client connected")
	return s, nil
}

func (h *Hub) replay(ctx context.Context, conn Conn) int {
	history, err := h.History(ctx, h.opts.HistoryLimit)
	if err != nil {
		h.metrics.StoreError("recent")
		h.log.Error().Err(err).Msg("load history")
		return 0
	}
	sent := 0
	for _, msg := range history {
		data, err := chatEvent(msg).Encode()
		if err != nil {
			h.log.Error().Err(err).Str("msg_id", msg.ID).Msg("encode history message")
			continue
		}
		if !conn.Send(data) {
			h.log.Warn().Str("msg_id", msg.ID).Msg("history replay truncated, connection not writable")
			break
		}
		sent++
	}
	return sent
}

// History returns up to limit recent messages, oldest first. The limit is
// capped at the configured history size.
func (h *Hub) History(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 || limit > h.opts.HistoryLimit {
		limit = h.opts.HistoryLimit
	}
	if limit == 0 {
		return []Message{}, nil
	}
	rows, err := h.store.RecentMessages(ctx, limit)
	if err != nil {
		return nil, err
	}
	return messagesFromStore(rows), nil
}

// Wait stops accepting sessions, then blocks until all open sessions are
// closed and pending bot replies are delivered, or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	h.seq.Lock()
	h.closing = true
	h.seq.Unlock()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		h.botTasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish persists a message authored by username and broadcasts it.
// A failed write suppresses the broadcast for that message only.
func (h *Hub) publish(ctx context.Context, username, text string) (Message, bool) {
	h.seq.Lock()
	defer h.seq.Unlock()

	msg := newMessage(username, text, h.now())
	// In-flight writes finish even if the connection that caused them is gone.
	if err := h.store.AppendMessage(context.WithoutCancel(ctx), msg.toStore()); err != nil {
		h.metrics.StoreError("append")
		h.log.Error().Err(err).Str("msg_id", msg.ID).Str("username", username).Msg("persist message")
		return msg, false
	}
	h.metrics.MessageStored()

	delivered := h.broadcaster.BroadcastChat(msg)
	h.log.Debug().Str("msg_id", msg.ID).Str("username", username).Int("delivered", delivered).Msg("message broadcast")
	return msg, true
}

// announce broadcasts a system-authored message that is not persisted.
func (h *Hub) announce(text string) {
	h.seq.Lock()
	defer h.seq.Unlock()

	h.broadcaster.BroadcastChat(newMessage(h.opts.SystemName, text, h.now()))
}
