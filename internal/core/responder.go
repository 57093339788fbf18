//go:generate go run go.uber.org/mock/mockgen -source=responder.go -destination=../mocks/mock_responder.go -package=mocks

package core

import (
	"context"
	"time"
)

// Reply is the responder's answer to a bot question.
type Reply struct {
	Text string
	// TypingDelay is how long the bot appears to type before the reply is posted.
	TypingDelay time.Duration
}

// Responder answers bot questions. Implementations make exactly one attempt
// per call and report any failure as an error.
type Responder interface {
	Ask(ctx context.Context, question, user string) (Reply, error)
}
