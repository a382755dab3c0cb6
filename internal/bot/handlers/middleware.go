// Package handlers contains the Telegram update handlers for the account
// linking conversation, along with their registration logic and middleware.
package handlers

import (
	"context"
	"log/slog"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/logger"
)

// UpdateMiddlewares is the bot-wide chain applied to every handler, the
// default handler included: update logging outside, panic recovery inside.
func UpdateMiddlewares(log *slog.Logger) []tgbot.Middleware {
	return []tgbot.Middleware{logger.Middleware(log), Recover(log)}
}

// Recover creates a middleware that stops a panicking handler from taking
// down the update loop. The panic is logged with its stack.
func Recover(log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "Recovered from panic in update handler",
						"panic", r, "update_id", update.ID, "stack", string(debug.Stack()))
				}
			}()

			next(ctx, bot, update)
		}
	}
}
