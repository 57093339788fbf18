package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/relaychat/internal/responder"
	"github.com/vovakirdan/relaychat/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketRenameAndBroadcast(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	connA := env.dial(t)
	connB := env.dial(t)
	env.waitForClients(t, 2)

	writeJSON(t, connA, map[string]any{"type": "setUsername", "username": "  alice "})
	writeJSON(t, connA, map[string]any{"type": "chat", "text": "hi there"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readChat(t, conn)
		if msg.Username != "alice" || msg.Text != "hi there" {
			t.Fatalf("unexpected chat payload: %+v", msg)
		}
		if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", msg.Timestamp); err != nil {
			t.Fatalf("timestamp %q: %v", msg.Timestamp, err)
		}
	}
}

func TestWebSocketHistoryReplay(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := range 8 {
		err := env.store.AppendMessage(context.Background(), &store.Message{
			ID:        fmt.Sprintf("h%d", i),
			Username:  "seed",
			Text:      fmt.Sprintf("msg %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	conn := env.dial(t)
	for i := 3; i < 8; i++ {
		msg := readChat(t, conn)
		if msg.Text != fmt.Sprintf("msg %d", i) {
			t.Fatalf("history out of order: got %q at %d", msg.Text, i)
		}
	}
}

func TestWebSocketTypingSkipsSender(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	connA := env.dial(t)
	connB := env.dial(t)
	env.waitForClients(t, 2)

	writeJSON(t, connA, map[string]any{"type": "setUsername", "username": "alice"})
	writeJSON(t, connA, map[string]any{"type": "typing"})

	if who := readTyping(t, connB); who == nil || *who != "alice" {
		t.Fatalf("unexpected typing username: %v", who)
	}

	// A chat after the typing frame must be the next thing A sees.
	writeJSON(t, connB, map[string]any{"type": "chat", "text": "ping"})
	if msg := readChat(t, connA); msg.Text != "ping" {
		t.Fatalf("unexpected frame for sender: %+v", msg)
	}
}

func TestWebSocketMalformedFrameKeepsConnection(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	conn := env.dial(t)
	env.waitForClients(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, raw := range []string{"not json", `{"type":"dance"}`, `{"type":"chat"}`, `{"username":"x"}`} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
			t.Fatalf("write %q: %v", raw, err)
		}
	}
	writeJSON(t, conn, map[string]any{"type": "chat", "text": "still here"})

	if msg := readChat(t, conn); msg.Text != "still here" {
		t.Fatalf("unexpected payload: %+v", msg)
	}
	if got := counterValue(t, env, "relaychat_malformed_inbound_total"); got != 4 {
		t.Fatalf("malformed counter: %v", got)
	}
}

func TestWebSocketBotRoundTrip(t *testing.T) {
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
			User string `json:"user"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reply":        fmt.Sprintf("%s asked: %s", body.User, body.Text),
			"typing_delay": 0.05,
		})
	}))
	t.Cleanup(bot.Close)

	env := startTestServer(t, testConfig(), responder.New(bot.URL))

	connA := env.dial(t)
	connB := env.dial(t)
	env.waitForClients(t, 2)

	writeJSON(t, connA, map[string]any{"type": "setUsername", "username": "alice"})
	writeJSON(t, connA, map[string]any{"type": "chat", "text": "/bot why is the sky blue"})

	if msg := readChat(t, connB); msg.Username != "alice" || msg.Text != "why is the sky blue" {
		t.Fatalf("unexpected question frame: %+v", msg)
	}
	if who := readTyping(t, connB); who == nil || *who != "Bot" {
		t.Fatalf("expected bot typing, got %v", who)
	}
	if msg := readChat(t, connB); msg.Username != "Bot" || msg.Text != "alice asked: why is the sky blue" {
		t.Fatalf("unexpected reply frame: %+v", msg)
	}
	if who := readTyping(t, connB); who != nil {
		t.Fatalf("expected typing cleared, got %q", *who)
	}
}

func TestWebSocketOversizedFrameClosesConnection(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageBytes = 64
	env := startTestServer(t, cfg, nil)

	conn := env.dial(t)
	env.waitForClients(t, 1)

	writeJSON(t, conn, map[string]any{"type": "chat", "text": string(make([]byte, 256))})

	// Reading answers the server's close frame, completing the handshake.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusMessageTooBig {
				t.Fatalf("expected message too big close, got %v (%v)", status, err)
			}
			break
		}
	}
	env.waitForClients(t, 0)
}

func TestWebSocketShutdownSendsGoingAway(t *testing.T) {
	env := startTestServer(t, testConfig(), nil)

	conn := env.dial(t)
	env.waitForClients(t, 1)

	env.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected going away close, got %v (%v)", status, err)
	}
	env.waitForClients(t, 0)
}

func TestWebSocketRateLimitDropsExcess(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	env := startTestServer(t, cfg, nil)

	conn := env.dial(t)
	env.waitForClients(t, 1)

	for i := range 4 {
		writeJSON(t, conn, map[string]any{"type": "chat", "text": fmt.Sprintf("burst %d", i)})
	}

	for i := range 2 {
		if msg := readChat(t, conn); msg.Text != fmt.Sprintf("burst %d", i) {
			t.Fatalf("unexpected payload: %+v", msg)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for counterValue(t, env, "relaychat_rate_limited_total") != 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected two frames dropped by the rate limit")
		}
		time.Sleep(5 * time.Millisecond)
	}
	count, err := env.store.CountMessages(context.Background())
	if err != nil || count != 2 {
		t.Fatalf("stored %d messages (err %v), want 2", count, err)
	}
}
