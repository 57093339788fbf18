package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

// wsConn is the core.Conn side of a socket: a bounded outbound queue drained
// by the write loop.
type wsConn struct {
	out    chan []byte
	closed atomic.Bool
}

func newWSConn(size int) *wsConn {
	if size < 1 {
		size = 1
	}
	return &wsConn{out: make(chan []byte, size)}
}

func (c *wsConn) Send(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.closed.Store(true)
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	opts := &websocket.AcceptOptions{InsecureSkipVerify: true}
	if len(h.cfg.AllowedOrigins) > 0 {
		opts = &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	// History replay is queued before the write loop starts, so the queue
	// must hold a full replay on top of the live buffer.
	wc := newWSConn(h.cfg.SendBuffer + h.cfg.HistoryLimit)
	session, err := h.hub.Open(r.Context(), wc)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws connection refused")
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	release := func() {
		wc.close()
		session.Close()
	}
	defer release()

	// The loops run detached from the server context: cancelling a read
	// context makes the library drop the socket without our close status.
	// Shutdown closes the socket explicitly instead.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	stopShutdownClose := context.AfterFunc(r.Context(), func() {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	})
	defer stopShutdownClose()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, wc, session.ID)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	// Leave the registry before the close handshake, which may wait on the peer.
	release()

	if r.Context().Err() != nil {
		return
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	m := h.hub.Metrics()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !allow(limiter) {
			m.RateLimited()
			h.log.Debug().Str("client_id", session.ID).Msg("inbound dropped by rate limit")
			continue
		}
		if typ != websocket.MessageText {
			m.MalformedInbound()
			h.log.Warn().Str("client_id", session.ID).Msg("binary frame ignored")
			continue
		}

		inbound, err := proto.DecodeInbound(data)
		if err != nil {
			m.MalformedInbound()
			h.log.Warn().Err(err).Str("client_id", session.ID).Msg("malformed inbound ignored")
			continue
		}
		cmd, ok := inboundToCommand(inbound)
		if !ok {
			continue
		}
		if err := session.Handle(ctx, cmd); err != nil {
			if errors.Is(err, core.ErrSessionClosed) {
				return err
			}
			h.log.Warn().Err(err).Str("client_id", session.ID).Str("command", cmd.Kind.String()).Msg("command failed")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn, clientID string) error {
	for {
		select {
		case data := <-wc.out:
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				h.log.Error().Err(err).Str("client_id", clientID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
