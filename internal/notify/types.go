// Package notify formats task-assignment notifications and delivers them to
// linked Telegram chats, classifying every failure into a DeliveryResult.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Reason classifies a failed delivery.
type Reason string

// Failure reasons reported in DeliveryResult.Reason.
const (
	ReasonNoChatID         Reason = "no_chat_id"
	ReasonNotConfigured    Reason = "bot_not_configured"
	ReasonInvalidChatID    Reason = "invalid_chat_id"
	ReasonUserBlockedBot   Reason = "user_blocked_bot"
	ReasonUnknown          Reason = "unknown_error"
	ReasonInvalidChatIDFmt Reason = "invalid_chat_id_format"
)

// DeliveryResult is the outcome of one send attempt. Exactly one of
// MessageID (when OK) or Reason (when not OK) is meaningful; Err carries the
// underlying error for ReasonUnknown.
type DeliveryResult struct {
	OK        bool
	MessageID int
	Reason    Reason
	Err       error
}

// Delivered returns a successful result.
func Delivered(messageID int) DeliveryResult {
	return DeliveryResult{OK: true, MessageID: messageID}
}

// Failed returns a failed result with reason and optional cause.
func Failed(reason Reason, err error) DeliveryResult {
	return DeliveryResult{Reason: reason, Err: err}
}

// ChatID is a Telegram chat identifier as stored by recipient registries,
// which may hold it as a number or a string.
type ChatID string

// UnmarshalJSON accepts JSON numbers, strings and null.
func (c *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChatID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("chat id must be a number or a string: %w", err)
		}
		*c = ChatID(n.String())
		return nil
	}
}

// Normalized returns the identifier with surrounding whitespace removed.
func (c ChatID) Normalized() string {
	return strings.TrimSpace(string(c))
}

// Recipient is the profile a notification is addressed to.
type Recipient struct {
	ProfileID int64
	Name      string
	ChatID    ChatID
}

// AICommunication describes the assistant follow-up configured on a task.
type AICommunication struct {
	Active    bool     `json:"active"`
	Frequency string   `json:"frequency"`
	Days      []string `json:"days"`
	Prompt    string   `json:"prompt"`
}

// Payload is a task-assignment notification.
type Payload struct {
	TaskID          int64            `json:"id"`
	Title           string           `json:"title"           binding:"required"`
	Description     string           `json:"description"`
	Priority        string           `json:"priority"`
	StartDate       *Timestamp       `json:"startDate"`
	DueDate         *Timestamp       `json:"dueDate"`
	ProjectName     string           `json:"projectName"`
	Link            string           `json:"link"`
	AICommunication *AICommunication `json:"aiCommunication"`
}

// UnmarshalJSON also accepts "endDate" as the due date.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type plain Payload
	aux := struct {
		*plain
		EndDate *Timestamp `json:"endDate"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.DueDate == nil {
		p.DueDate = aux.EndDate
	}
	return nil
}

// Timestamp is a point in time that decodes from RFC 3339, a bare date, or a
// local date-time without zone (taken as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// UnmarshalJSON parses the layouts accepted by Timestamp. Empty strings and
// null leave the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
