package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewFallbackHandler returns the default handler. It answers any text that no
// other handler matched with a hint and ignores non-text updates.
func NewFallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	h := fallbackHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type fallbackHandler struct {
	deps HandlerDeps
}

func (h fallbackHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	log := h.deps.Logger.With("handler", "fallback")
	log.DebugContext(ctx, "Replying with fallback hint", "chat_id", update.Message.Chat.ID)
	reply(ctx, s, log, update.Message.Chat.ID, h.deps.Config.Messages.Fallback, nil)
}
