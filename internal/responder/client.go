// Package responder talks to the HTTP service that answers /bot questions.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/vovakirdan/relaychat/internal/core"
)

// maxBodyBytes caps how much of a responder reply is read.
const maxBodyBytes = 1 << 20

// maxDelaySeconds is the largest typing delay a time.Duration can hold.
const maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

// ErrNoEndpoint is returned when no responder endpoint is configured.
var ErrNoEndpoint = errors.New("responder endpoint not configured")

// Error describes a failed exchange with the responder. Status is zero when
// no HTTP response was received.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("responder: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("responder: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type request struct {
	Text string `json:"text"`
	User string `json:"user"`
}

type response struct {
	Reply       *string  `json:"reply"`
	TypingDelay *float64 `json:"typing_delay"`
}

// Client posts questions to the responder endpoint.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *stdhttp.Client
}

var _ core.Responder = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *stdhttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New returns a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     stdhttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask sends one question on behalf of user. A reply without text counts as
// malformed.
func (c *Client) Ask(ctx context.Context, question, user string) (core.Reply, error) {
	if c.endpoint == "" {
		return core.Reply{}, &Error{Err: ErrNoEndpoint}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(request{Text: question, User: user})
	if err != nil {
		return core.Reply{}, &Error{Err: fmt.Errorf("encode request: %w", err)}
	}
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.Reply{}, &Error{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Reply{}, &Error{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return core.Reply{}, &Error{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Reply{}, &Error{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(raw)))}
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return core.Reply{}, &Error{Status: resp.StatusCode, Err: fmt.Errorf("decode reply: %w", err)}
	}
	if out.Reply == nil || strings.TrimSpace(*out.Reply) == "" {
		return core.Reply{}, &Error{Status: resp.StatusCode, Err: errors.New("reply missing")}
	}

	reply := core.Reply{Text: *out.Reply}
	if out.TypingDelay != nil {
		reply.TypingDelay = typingDelay(*out.TypingDelay)
	}
	return reply, nil
}

// typingDelay converts seconds to a Duration, saturating instead of
// overflowing. Negative values yield zero.
func typingDelay(seconds float64) time.Duration {
	switch {
	case seconds <= 0:
		return 0
	case seconds >= maxDelaySeconds:
		return time.Duration(math.MaxInt64)
	default:
		return time.Duration(seconds * float64(time.Second))
	}
}
