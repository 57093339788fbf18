package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/relaychat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to set")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(v any) error {
		if err := wsjson.Write(ctx, conn, v); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	if err := mustSend(proto.Inbound{Type: proto.InboundTypeSetUsername, Username: user}); err != nil {
		return err
	}
	if err := mustSend(proto.Inbound{Type: proto.InboundTypeChat, Text: text}); err != nil {
		return err
	}

	// History arrives first; wait for our own message to come back.
	for {
		var outbound struct {
			Type     string          `json:"type"`
			Data     json.RawMessage `json:"data"`
			Username *string         `json:"username"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s\n", outbound.Type)
		if outbound.Type != proto.OutboundTypeChat {
			continue
		}

		var msg proto.Message
		if err := json.Unmarshal(outbound.Data, &msg); err != nil {
			fmt.Printf("Raw data: %s\n", string(outbound.Data))
			return fmt.Errorf("unmarshal message: %w", err)
		}
		fmt.Printf("Message: id=%s user=%s text=%q ts=%s\n", msg.ID, msg.Username, msg.Text, msg.Timestamp)
		if msg.Username == *user && msg.Text == *text {
			return nil
		}
	}
}
