package core_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/relaychat/internal/proto"
)

// chanConn queues frames on a buffered channel, like the transport does.
type chanConn struct {
	frames chan []byte
}

func newChanConn(size int) *chanConn {
	return &chanConn{frames: make(chan []byte, size)}
}

func (c *chanConn) Send(data []byte) bool {
	select {
	case c.frames <- data:
		return true
	default:
		return false
	}
}

// recordingConn keeps every accepted frame and can be switched to unwritable.
type recordingConn struct {
	mu       sync.Mutex
	frames   [][]byte
	rejected bool
}

func (c *recordingConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejected {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *recordingConn) setWritable(ok bool) {
	c.mu.Lock()
	c.rejected = !ok
	c.mu.Unlock()
}

func (c *recordingConn) decoded(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, data := range c.frames {
		out = append(out, decodeFrame(t, data))
	}
	return out
}

// frame is a decoded server envelope. HasUsername distinguishes an explicit
// null from an absent field.
type frame struct {
	Type        string
	Message     proto.Message
	Username    *string
	HasUsername bool
}

func decodeFrame(t *testing.T, data []byte) frame {
	t.Helper()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}

	var f frame
	if err := json.Unmarshal(fields["type"], &f.Type); err != nil {
		t.Fatalf("decode frame type %s: %v", data, err)
	}
	if raw, ok := fields["data"]; ok {
		if err := json.Unmarshal(raw, &f.Message); err != nil {
			t.Fatalf("decode frame data %s: %v", data, err)
		}
	}
	if raw, ok := fields["username"]; ok {
		f.HasUsername = true
		if err := json.Unmarshal(raw, &f.Username); err != nil {
			t.Fatalf("decode frame username %s: %v", data, err)
		}
	}
	return f
}

func mustFrame(t *testing.T, c *chanConn, kind string) frame {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case data := <-c.frames:
			f := decodeFrame(t, data)
			if f.Type == kind {
				return f
			}
			t.Fatalf("expected %s frame, got %s", kind, data)
		case <-timeout:
			t.Fatalf("expected %s frame not received", kind)
			return frame{}
		}
	}
}

func mustNoFrame(t *testing.T, c *chanConn, within time.Duration) {
	t.Helper()
	select {
	case data := <-c.frames:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(within):
	}
}
