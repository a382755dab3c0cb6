package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/bot/handlers"
	"github.com/edgard/taskbridge/internal/logger"
)

// newAPIServer serves Bot API methods from a table of canned replies.
func newAPIServer(t *testing.T, replies map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		reply, ok := replies[method]
		if !ok {
			reply = map[string]any{"ok": true, "result": true}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func apiFailure(code int, description string) map[string]any {
	return map[string]any{"ok": false, "error_code": code, "description": description}
}

func newTestClient(t *testing.T, srv *httptest.Server) Client {
	t.Helper()

	c, err := NewClient("123:abc", ClientOptions{
		RequestTimeout: 2 * time.Second,
		PollTimeout:    2 * time.Second,
		ServerURL:      srv.URL,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestClientPollStopsOnConflict(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t, map[string]any{
		"getUpdates": apiFailure(http.StatusConflict,
			"Conflict: terminated by other getUpdates request; make sure that only one bot instance is running"),
	})
	c := newTestClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Poll(ctx)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Poll() error = %v, want ErrConflict", err)
	}
	if ctx.Err() != nil {
		t.Error("Poll returned only after the caller context expired")
	}
}

func TestClientPollReturnsNilOnCancel(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t, map[string]any{
		"getUpdates": map[string]any{"ok": true, "result": []any{}},
	})
	c := newTestClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := c.Poll(ctx); err != nil {
		t.Errorf("Poll() error = %v, want nil on cancellation", err)
	}
}

func TestClientSendMessageDecodesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		reply        map[string]any
		code         int
		chatNotFound bool
	}{
		{
			name:         "chat not found",
			reply:        apiFailure(http.StatusBadRequest, "Bad Request: chat not found"),
			code:         http.StatusBadRequest,
			chatNotFound: true,
		},
		{
			name:  "other bad request",
			reply: apiFailure(http.StatusBadRequest, "Bad Request: message text is empty"),
			code:  http.StatusBadRequest,
		},
		{
			name:  "blocked",
			reply: apiFailure(http.StatusForbidden, "Forbidden: bot was blocked by the user"),
			code:  http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, newAPIServer(t, map[string]any{"sendMessage": tt.reply}))

			_, err := c.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 42, Text: "hi"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("SendMessage() error = %v, want *APIError", err)
			}
			if apiErr.Code != tt.code {
				t.Errorf("Code = %d, want %d", apiErr.Code, tt.code)
			}
			if apiErr.IsChatNotFound() != tt.chatNotFound {
				t.Errorf("IsChatNotFound() = %v, want %v", apiErr.IsChatNotFound(), tt.chatNotFound)
			}
			if !strings.HasPrefix(apiErr.Description, "Bad Request") && !strings.HasPrefix(apiErr.Description, "Forbidden") {
				t.Errorf("Description = %q, want the platform description", apiErr.Description)
			}
		})
	}
}

func TestClientSendMessageSuccess(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t, map[string]any{
		"sendMessage": map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 77, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
		},
	})
	c := newTestClient(t, srv)

	msg, err := c.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 42, Text: "hi"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if msg.ID != 77 {
		t.Errorf("message id = %d, want 77", msg.ID)
	}
}

func TestClientRecoversDefaultHandlerPanic(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t, nil)

	returned := make(chan struct{})
	outer := func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			next(ctx, b, update)
			close(returned)
		}
	}

	c, err := NewClient("123:abc", ClientOptions{
		ServerURL: srv.URL,
		DefaultHandler: func(context.Context, *bot.Bot, *models.Update) {
			panic("fallback exploded")
		},
		Middlewares: append([]bot.Middleware{outer}, handlers.UpdateMiddlewares(logger.Discard())...),
	}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	c.HandleUpdate(context.Background(), &models.Update{
		ID:      1,
		Message: &models.Message{Text: "hello", Chat: models.Chat{ID: 42}},
	})

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("default handler panic was not recovered")
	}
}
