package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
)

type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	store  store.Store
	reg    *prometheus.Registry
	// shutdown cancels the server base context, as the app does on exit.
	shutdown context.CancelFunc
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.HistoryLimit = 5
	cfg.Bot.Name = "Bot"
	cfg.Bot.MaxTypingDelay = time.Second
	return cfg
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func startTestServer(t *testing.T, cfg config.Config, responder core.Responder) *testEnv {
	t.Helper()

	st := createTestStore(t)
	reg := prometheus.NewRegistry()
	disabledLogger := zerolog.Nop()

	hub := core.NewHub(st, responder, core.Options{
		DefaultUsername:   cfg.DefaultUsername,
		SystemName:        cfg.SystemName,
		HistoryLimit:      cfg.HistoryLimit,
		BotTrigger:        cfg.Bot.Trigger,
		BotName:           cfg.Bot.Name,
		BotFallbackText:   cfg.Bot.FallbackText,
		BotUsageText:      cfg.Bot.UsageText,
		BotMaxTypingDelay: cfg.Bot.MaxTypingDelay,
	}, &disabledLogger, metrics.New(reg))

	baseCtx, shutdown := context.WithCancel(context.Background())
	t.Cleanup(shutdown)

	server := NewServer(hub, st, reg, &cfg, &disabledLogger)
	ts := httptest.NewUnstartedServer(server.Handler)
	ts.Config.BaseContext = func(net.Listener) context.Context { return baseCtx }
	ts.Start()
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, hub: hub, store: st, reg: reg, shutdown: shutdown}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// waitForClients polls until the registry holds n clients, so tests do not
// race the server-side registration of a fresh connection.
func (e *testEnv) waitForClients(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for e.hub.Registry().Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, e.hub.Registry().Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type outbound struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	Username *string         `json:"username"`
}

type chatData struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readOutbound(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var out outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func readChat(t *testing.T, conn *websocket.Conn) chatData {
	t.Helper()

	out := readOutbound(t, conn)
	if out.Type != "chat" {
		t.Fatalf("expected chat frame, got %q", out.Type)
	}
	var data chatData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("unmarshal chat data: %v", err)
	}
	return data
}

func readTyping(t *testing.T, conn *websocket.Conn) *string {
	t.Helper()

	out := readOutbound(t, conn)
	if out.Type != "typing" {
		t.Fatalf("expected typing frame, got %q", out.Type)
	}
	return out.Username
}

// counterValue reads an unlabelled counter from the test registry.
func counterValue(t *testing.T, env *testEnv, name string) float64 {
	t.Helper()

	families, err := env.reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}
