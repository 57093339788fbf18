package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/relaychat/internal/proto"
)

// typingInterval throttles typing notifications while the user keeps entering lines.
const typingInterval = 2 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "", "display name (empty keeps the server default)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if name := strings.TrimSpace(*user); name != "" {
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSetUsername, Username: &name}); err != nil {
			return fmt.Errorf("set username: %w", err)
		}
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. /name <new name> renames, /bot <question> asks the bot. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type outbound struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	Username *string         `json:"username"`
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch out.Type {
		case proto.OutboundTypeChat:
			var msg proto.Message
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				log.Printf("unmarshal chat: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", shortTime(msg.Timestamp), msg.Username, msg.Text)
		case proto.OutboundTypeTyping:
			if out.Username != nil {
				fmt.Printf("  %s is typing...\n", *out.Username)
			}
		default:
			fmt.Printf("type=%s data=%s\n", out.Type, out.Data)
		}
	}
}

func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var lastTyping time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			in := proto.Inbound{Type: proto.InboundTypeChat, Text: &text}
			if name, found := strings.CutPrefix(text, "/name "); found {
				name = strings.TrimSpace(name)
				in = proto.Inbound{Type: proto.InboundTypeSetUsername, Username: &name}
			} else if time.Since(lastTyping) > typingInterval {
				lastTyping = time.Now()
				if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeTyping}); err != nil {
					log.Printf("send error: %v", err)
					return
				}
			}

			if err := wsjson.Write(ctx, conn, in); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
