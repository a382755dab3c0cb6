package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler describes how a handler is attached to the bot.
// When Match is set it takes precedence over HandlerType, Pattern and MatchType.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Match       func(update *models.Update) bool
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns the handlers that drive the account-linking
// conversation. Unmatched text is answered by NewFallbackHandler, which is
// installed as the bot's default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	safe := []tgbot.Middleware{Recover(deps.Logger)}

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  safe,
	}
	handlers["contact"] = RegisteredHandler{
		Match:      IsContactShare,
		Handler:    NewContactHandler(deps),
		Middleware: safe,
	}

	return handlers
}
