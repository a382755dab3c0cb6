package handlers

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/database"
	"github.com/edgard/taskbridge/internal/phone"
)

// IsContactShare matches messages carrying a shared contact.
func IsContactShare(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.Contact != nil
}

// NewContactHandler returns a handler that links the sender's chat to the
// profile whose phone matches the shared contact.
func NewContactHandler(deps HandlerDeps) bot.HandlerFunc {
	h := contactHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type contactHandler struct {
	deps HandlerDeps
}

func (h contactHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", "contact")
	msgs := h.deps.Config.Messages

	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while linking contact", "panic", r, "chat_id", chatID, "stack", string(debug.Stack()))
			reply(ctx, s, log, chatID, msgs.LinkFailed, nil)
		}
	}()

	var raw string
	if msg.Contact != nil {
		raw = strings.TrimSpace(msg.Contact.PhoneNumber)
	}
	key := phone.Normalize(raw)
	if key == "" || chatID == 0 {
		log.WarnContext(ctx, "Contact share without phone or chat", "chat_id", chatID)
		reply(ctx, s, log, chatID, msgs.ContactUnreadable, nil)
		return
	}

	// Any contact card can be shared; only the sender's own number may link.
	if msg.From == nil || msg.Contact.UserID != msg.From.ID {
		log.WarnContext(ctx, "Rejected contact that does not belong to the sender", "chat_id", chatID)
		reply(ctx, s, log, chatID, msgs.ForeignContact, nil)
		return
	}
	username := msg.From.Username
	log.InfoContext(ctx, "Incoming contact", "chat_id", chatID, "username", username, "phone_key", key)

	profile, err := h.deps.Store.FindProfileByPhone(ctx, key)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up profile by phone", "error", err, "chat_id", chatID)
		reply(ctx, s, log, chatID, msgs.LinkFailed, nil)
		return
	}
	if profile == nil {
		log.WarnContext(ctx, "No profile found for phone", "phone_key", key)
		reply(ctx, s, log, chatID, msgs.NotRegistered, nil)
		return
	}

	link := database.TelegramLink{ChatID: chatID, Username: username, OptIn: true}
	if err := h.deps.Store.LinkTelegramToProfile(ctx, profile.ID, link); err != nil {
		log.ErrorContext(ctx, "Failed to link telegram chat", "error", err, "profile_id", profile.ID, "chat_id", chatID)
		reply(ctx, s, log, chatID, msgs.LinkFailed, nil)
		return
	}

	log.InfoContext(ctx, "Telegram chat linked", "profile_id", profile.ID, "chat_id", chatID)
	reply(ctx, s, log, chatID, msgs.Linked, &models.ReplyKeyboardRemove{RemoveKeyboard: true})
}
