package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"

	"github.com/edgard/taskbridge/internal/database"
	"github.com/edgard/taskbridge/internal/logger"
	"github.com/edgard/taskbridge/internal/telegram"
)

const (
	defaultSendTimeout = 10 * time.Second
	logWriteTimeout    = 5 * time.Second
	maxSummaryRunes    = 120
)

// Bridge is the part of *telegram.Starter the sender depends on.
type Bridge interface {
	Instance() *telegram.Instance
	Start(ctx context.Context) error
}

// DeliveryLogWriter persists delivery attempts.
type DeliveryLogWriter interface {
	SaveDeliveryLog(ctx context.Context, entry *database.DeliveryLog) error
}

// Sender delivers task notifications. Every attempt is sent at most once.
type Sender struct {
	bridge  Bridge
	logs    DeliveryLogWriter
	timeout time.Duration
	logger  *slog.Logger
}

// NewSender creates a Sender. logs may be nil to skip delivery logging.
func NewSender(bridge Bridge, logs DeliveryLogWriter, timeout time.Duration, log *slog.Logger) *Sender {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Sender{
		bridge:  bridge,
		logs:    logs,
		timeout: timeout,
		logger:  log.With("component", "notify_sender"),
	}
}

// SendTaskAssigned delivers payload to recipient. Expected failures are
// reported through the result, never as panics or errors.
func (s *Sender) SendTaskAssigned(ctx context.Context, recipient Recipient, payload Payload, adminContact, assistantURL string) DeliveryResult {
	chatID := recipient.ChatID.Normalized()
	result := s.send(ctx, chatID, payload, adminContact, assistantURL)
	s.record(ctx, recipient, chatID, payload, result)
	return result
}

func (s *Sender) send(ctx context.Context, chatID string, payload Payload, adminContact, assistantURL string) DeliveryResult {
	if chatID == "" {
		return Failed(ReasonNoChatID, nil)
	}

	inst := s.bridge.Instance()
	if !inst.Configured() {
		return Failed(ReasonNotConfigured, nil)
	}
	if !inst.Started() {
		if err := s.bridge.Start(ctx); err != nil {
			s.logger.WarnContext(ctx, "Lazy bridge start failed; sending anyway", "error", err)
		}
	}

	text, markup := FormatTaskAssigned(payload, adminContact, assistantURL)
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.DebugContext(ctx, "Sending task notification", "chat_id", chatID, "task_id", payload.TaskID, "ask_ai_button", markup != nil)
	msg, err := inst.Client().SendMessage(sendCtx, params)
	if err != nil {
		return classify(err)
	}
	if msg == nil {
		return Delivered(0)
	}
	return Delivered(msg.ID)
}

// classify maps a send error onto a failure reason.
func classify(err error) DeliveryResult {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsChatNotFound():
			return Failed(ReasonInvalidChatID, err)
		case apiErr.Code == http.StatusForbidden:
			return Failed(ReasonUserBlockedBot, err)
		}
	}
	return Failed(ReasonUnknown, err)
}

func (s *Sender) record(ctx context.Context, recipient Recipient, chatID string, payload Payload, result DeliveryResult) {
	log := s.logger.With("profile_id", recipient.ProfileID, "task_id", payload.TaskID, "chat_id", chatID)
	if result.OK {
		log.InfoContext(ctx, "Task notification delivered", "message_id", result.MessageID)
	} else {
		log.WarnContext(ctx, "Task notification not delivered", "reason", result.Reason, "error", result.Err)
	}

	if s.logs == nil {
		return
	}

	entry := &database.DeliveryLog{
		ProfileID: recipient.ProfileID,
		TaskID:    payload.TaskID,
		ChatID:    chatID,
		Status:    database.DeliveryStatusOK,
		MessageID: result.MessageID,
		Summary:   truncateRunes(payload.Title, maxSummaryRunes),
	}
	if !result.OK {
		entry.Status = database.DeliveryStatusFailed
		entry.Reason = string(result.Reason)
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()
	if err := s.logs.SaveDeliveryLog(logCtx, entry); err != nil {
		log.ErrorContext(ctx, "Failed to record delivery attempt", "error", err)
	}
}
