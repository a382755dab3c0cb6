package database

import (
	"database/sql"
	"time"
)

// Profile is a task assignee that may be reachable over Telegram.
// PhoneKey holds the normalised last digits of Phone and is what contact
// shares are matched against.
type Profile struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	FullName string         `db:"full_name"`
	Email    sql.NullString `db:"email"`
	Phone    sql.NullString `db:"phone"`
	PhoneKey sql.NullString `db:"phone_key"`

	TelegramChatID   sql.NullInt64  `db:"telegram_chat_id"`
	TelegramUsername sql.NullString `db:"telegram_username"`
	TelegramOptIn    bool           `db:"telegram_opt_in"`
}

// TelegramLink is the chat identity written to a profile once a contact
// share matches it.
type TelegramLink struct {
	ChatID   int64
	Username string
	OptIn    bool
}

// Delivery statuses stored in DeliveryLog.Status.
const (
	DeliveryStatusOK     = "ok"
	DeliveryStatusFailed = "failed"
)

// DeliveryLog records one notification send attempt.
type DeliveryLog struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ProfileID int64  `db:"profile_id"`
	TaskID    int64  `db:"task_id"`
	ChatID    string `db:"chat_id"`
	Status    string `db:"status"`
	Reason    string `db:"reason"`
	MessageID int    `db:"message_id"`
	Summary   string `db:"summary"`
}
