package core

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// matchTrigger reports whether text invokes the bot: the exact trigger, or
// the trigger followed by whitespace. The question is the trimmed remainder.
func matchTrigger(text, trigger string) (string, bool) {
	if trigger == "" || !strings.HasPrefix(text, trigger) {
		return "", false
	}
	rest := text[len(trigger):]
	if rest == "" {
		return "", true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(r) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// askBot posts the question, shows the bot typing and resolves the reply in
// the background so the asking connection keeps processing commands.
func (h *Hub) askBot(ctx context.Context, asker, question string) {
	if question == "" {
		h.announce(h.opts.BotUsageText)
		return
	}

	if _, ok := h.publish(ctx, asker, question); !ok {
		h.log.Warn().Str("username", asker).Msg("bot question not persisted, asking anyway")
	}

	botName := h.opts.BotName
	h.broadcaster.BroadcastTyping(&botName)

	h.botTasks.Add(1)
	go h.resolveBot(context.WithoutCancel(ctx), asker, question)
}

func (h *Hub) resolveBot(ctx context.Context, asker, question string) {
	text, delay := h.consult(ctx, asker, question)
	if delay <= 0 {
		defer h.botTasks.Done()
		h.postBotReply(ctx, text)
		return
	}

	time.AfterFunc(delay, func() {
		defer h.botTasks.Done()
		h.postBotReply(ctx, text)
	})
}

// consult calls the responder once and returns the text to post and how long
// to keep the bot typing first. Failures yield the fallback text immediately.
func (h *Hub) consult(ctx context.Context, asker, question string) (string, time.Duration) {
	if h.responder == nil {
		h.metrics.BotRequest("disabled")
		return h.opts.BotFallbackText, 0
	}

	start := h.now()
	reply, err := h.responder.Ask(ctx, question, asker)
	if err != nil {
		h.metrics.BotRequest("failure")
		h.log.Warn().Err(err).Str("username", asker).Msg("responder failed")
		return h.opts.BotFallbackText, 0
	}
	h.metrics.BotRequest("success")

	delay := reply.TypingDelay
	if delay < 0 {
		delay = 0
	}
	if limit := h.opts.BotMaxTypingDelay; limit > 0 && delay > limit {
		delay = limit
	}
	h.log.Debug().Str("username", asker).Dur("took", h.now().Sub(start)).Dur("typing_delay", delay).Msg("responder replied")
	return reply.Text, delay
}

func (h *Hub) postBotReply(ctx context.Context, text string) {
	h.publish(ctx, h.opts.BotName, text)
	h.broadcaster.BroadcastTyping(nil)
}
