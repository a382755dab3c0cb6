package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncateString() = %q, want abc...", got)
	}
	if got := truncateString("abcdef", 2); got != "..." {
		t.Errorf("truncateString() = %q, want ...", got)
	}
}

func TestMiddlewareLogsContactUpdates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "debug", true)

	called := false
	next := func(ctx context.Context, b *bot.Bot, update *models.Update) { called = true }

	update := &models.Update{
		ID: 42,
		Message: &models.Message{
			ID:      7,
			Chat:    models.Chat{ID: 1001},
			From:    &models.User{ID: 5},
			Contact: &models.Contact{PhoneNumber: "+1 555 123 4567"},
		},
	}
	Middleware(log)(next)(context.Background(), nil, update)

	if !called {
		t.Fatal("next handler was not called")
	}
	out := buf.String()
	for _, want := range []string{`"update_type":"contact"`, `"chat_id":1001`, `"update_id":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
