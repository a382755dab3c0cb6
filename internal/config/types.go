// Package config provides configuration loading, defaults, and validation
// for the taskbridge service.
package config

import "time"

// Environment names accepted by Config.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full application configuration.
type Config struct {
	Environment   string              `mapstructure:"environment"   validate:"required,oneof=development production"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Messages      MessagesConfig      `mapstructure:"messages"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

// IsProduction reports whether the bridge should run in webhook mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bridge credentials and webhook settings.
// An empty Token leaves the bridge unconfigured; the rest of the service still runs.
// WebhookSecret and PublicBaseURL are checked when the bridge starts in production.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
	WebhookPath    string        `mapstructure:"webhook_path"    validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=2m"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"    validate:"min=1s,max=2m"`
}

// ServerConfig configures the HTTP ingress.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	GinMode         string        `mapstructure:"gin_mode"         validate:"oneof=debug release test"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// DatabaseConfig points at the SQLite file holding profiles and delivery logs.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// NotificationsConfig tunes the task-assignment sender.
type NotificationsConfig struct {
	AdminContact string        `mapstructure:"admin_contact"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"  validate:"min=1s,max=2m"`
	LogRetention time.Duration `mapstructure:"log_retention" validate:"min=1h"`
}

// MessagesConfig holds every user-facing chat reply.
type MessagesConfig struct {
	SharePrompt       string `mapstructure:"share_prompt"       validate:"required"`
	ShareButton       string `mapstructure:"share_button"       validate:"required"`
	ContactUnreadable string `mapstructure:"contact_unreadable" validate:"required"`
	ForeignContact    string `mapstructure:"foreign_contact"    validate:"required"`
	NotRegistered     string `mapstructure:"not_registered"     validate:"required"`
	Linked            string `mapstructure:"linked"             validate:"required"`
	LinkFailed        string `mapstructure:"link_failed"        validate:"required"`
	Fallback          string `mapstructure:"fallback"           validate:"required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
