package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/taskbridge/internal/logger"
	"github.com/edgard/taskbridge/internal/phone"
)

// ErrProfileNotFound is returned by writes that target a missing profile.
var ErrProfileNotFound = errors.New("profile not found")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveProfile inserts a profile when ID is zero and updates it otherwise.
	// PhoneKey is derived from Phone on every save.
	SaveProfile(ctx context.Context, profile *Profile) error

	// GetProfile retrieves a profile by ID. Returns nil, nil if not found.
	GetProfile(ctx context.Context, id int64) (*Profile, error)

	// FindProfileByPhone returns the first profile (lowest ID) whose phone key
	// equals key. Returns nil, nil if none matches.
	FindProfileByPhone(ctx context.Context, key string) (*Profile, error)

	// LinkTelegramToProfile stores the chat identity on a profile.
	LinkTelegramToProfile(ctx context.Context, profileID int64, link TelegramLink) error

	// SaveDeliveryLog records a notification attempt.
	SaveDeliveryLog(ctx context.Context, entry *DeliveryLog) error

	// ListDeliveryLogs returns the most recent attempts for a profile, newest first.
	ListDeliveryLogs(ctx context.Context, profileID int64, limit int) ([]DeliveryLog, error)

	// PruneDeliveryLogs deletes attempts older than before and returns the count removed.
	PruneDeliveryLogs(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

const profileColumns = `id, created_at, updated_at, full_name, email, phone, phone_key,
	telegram_chat_id, telegram_username, telegram_opt_in`

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveProfile inserts or updates a profile, keeping phone_key in sync with phone.
func (s *sqlxStore) SaveProfile(ctx context.Context, profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("cannot save nil profile")
	}
	if strings.TrimSpace(profile.FullName) == "" {
		return fmt.Errorf("profile must have a non-empty full_name")
	}

	profile.PhoneKey = sql.NullString{}
	if profile.Phone.Valid {
		if key := phone.Normalize(profile.Phone.String); key != "" {
			profile.PhoneKey = sql.NullString{String: key, Valid: true}
		}
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now

	if profile.ID == 0 {
		profile.CreatedAt = now
		query := `
			INSERT INTO profiles (
				full_name, email, phone, phone_key, telegram_chat_id,
				telegram_username, telegram_opt_in, created_at, updated_at
			) VALUES (
				:full_name, :email, :phone, :phone_key, :telegram_chat_id,
				:telegram_username, :telegram_opt_in, :created_at, :updated_at
			)`
		result, err := s.db.NamedExecContext(ctx, query, profile)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error inserting profile", "error", err)
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read new profile id: %w", err)
		}
		profile.ID = id
		s.logger.DebugContext(ctx, "Profile inserted", "profile_id", id)
		return nil
	}

	query := `
		UPDATE profiles SET
			full_name = :full_name,
			email = :email,
			phone = :phone,
			phone_key = :phone_key,
			telegram_chat_id = :telegram_chat_id,
			telegram_username = :telegram_username,
			telegram_opt_in = :telegram_opt_in,
			updated_at = :updated_at
		WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating profile", "profile_id", profile.ID, "error", err)
		return fmt.Errorf("failed to update profile %d: %w", profile.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update profile %d: %w", profile.ID, ErrProfileNotFound)
	}

	s.logger.DebugContext(ctx, "Profile updated", "profile_id", profile.ID)
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *sqlxStore) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	if id <= 0 {
		return nil, fmt.Errorf("profile id must be positive")
	}
	return s.getProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
}

// FindProfileByPhone matches a normalised phone key. Suffix collisions are not
// disambiguated: the oldest profile wins.
func (s *sqlxStore) FindProfileByPhone(ctx context.Context, key string) (*Profile, error) {
	if key == "" {
		return nil, fmt.Errorf("phone key cannot be empty")
	}
	return s.getProfile(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE phone_key = ? ORDER BY id LIMIT 1`, key)
}

func (s *sqlxStore) getProfile(ctx context.Context, query string, arg any) (*Profile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile Profile
	err := s.db.GetContext(ctx, &profile, query, arg)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No profile found", "lookup", arg)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching profile", "lookup", arg, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error fetching profile", "lookup", arg, "error", err)
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &profile, nil
}

// LinkTelegramToProfile writes the chat identity and opt-in flag.
func (s *sqlxStore) LinkTelegramToProfile(ctx context.Context, profileID int64, link TelegramLink) error {
	if profileID <= 0 {
		return fmt.Errorf("profile id must be positive")
	}
	if link.ChatID == 0 {
		return fmt.Errorf("chat id cannot be zero")
	}

	username := sql.NullString{String: link.Username, Valid: link.Username != ""}
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			telegram_chat_id = ?,
			telegram_username = ?,
			telegram_opt_in = ?,
			updated_at = ?
		WHERE id = ?`,
		link.ChatID, username, link.OptIn, time.Now().UTC(), profileID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error linking telegram chat", "profile_id", profileID, "error", err)
		return fmt.Errorf("failed to link telegram chat to profile %d: %w", profileID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("link telegram chat to profile %d: %w", profileID, ErrProfileNotFound)
	}

	s.logger.InfoContext(ctx, "Telegram chat linked to profile", "profile_id", profileID, "chat_id", link.ChatID)
	return nil
}

// SaveDeliveryLog inserts one delivery attempt.
func (s *sqlxStore) SaveDeliveryLog(ctx context.Context, entry *DeliveryLog) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil delivery log")
	}
	if entry.Status == "" {
		return fmt.Errorf("delivery log must have a status")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO delivery_logs (profile_id, task_id, chat_id, status, reason, message_id, summary, created_at)
		VALUES (:profile_id, :task_id, :chat_id, :status, :reason, :message_id, :summary, :created_at)`
	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving delivery log", "profile_id", entry.ProfileID, "task_id", entry.TaskID, "error", err)
		return fmt.Errorf("failed to save delivery log: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListDeliveryLogs returns up to limit entries for profileID, newest first.
func (s *sqlxStore) ListDeliveryLogs(ctx context.Context, profileID int64, limit int) ([]DeliveryLog, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	var logs []DeliveryLog
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, created_at, profile_id, task_id, chat_id, status, reason, message_id, summary
		FROM delivery_logs
		WHERE profile_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, profileID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing delivery logs", "profile_id", profileID, "error", err)
		return nil, fmt.Errorf("failed to list delivery logs for profile %d: %w", profileID, err)
	}
	return logs, nil
}

// PruneDeliveryLogs deletes entries created before the cutoff.
func (s *sqlxStore) PruneDeliveryLogs(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM delivery_logs WHERE created_at < ?`, before.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning delivery logs", "before", before, "error", err)
		return 0, fmt.Errorf("failed to prune delivery logs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned delivery logs: %w", err)
	}
	s.logger.InfoContext(ctx, "Delivery logs pruned", "deleted", affected, "before", before)
	return affected, nil
}

// RunSQLMaintenance runs VACUUM and lets SQLite refresh its query planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM cannot run inside a transaction.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Error during VACUUM", "error", err)
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to run PRAGMA optimize", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
