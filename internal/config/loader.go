package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the environment,
// e.g. TASKBRIDGE_TELEGRAM_TOKEN.
const EnvPrefix = "TASKBRIDGE"

// legacyEnv maps configuration keys to the environment variable names used by
// earlier deployments of the task manager. They are consulted after the
// prefixed variables.
var legacyEnv = map[string][]string{
	"telegram.token":           {"TELEGRAM_BOT_TOKEN"},
	"telegram.webhook_secret":  {"TG_WEBHOOK_SECRET"},
	"telegram.public_base_url": {"APP_URL", "PUBLIC_URL"},
	"environment":              {"NODE_ENV"},
}

// LoadConfig reads configuration from defaults, an optional YAML file at path,
// an optional .env file and the process environment, in increasing order of
// precedence, then validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envNames := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envNames...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) && !isConfigNotFound(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isConfigNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) && os.IsNotExist(pathErr.Err)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", DefaultEnvironment)

	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.public_base_url", "")
	v.SetDefault("telegram.webhook_path", DefaultWebhookPath)
	v.SetDefault("telegram.request_timeout", DefaultTelegramRequestTimeout)
	v.SetDefault("telegram.poll_timeout", DefaultTelegramPollTimeout)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.gin_mode", DefaultGinMode)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("notifications.admin_contact", "")
	v.SetDefault("notifications.send_timeout", DefaultSendTimeout)
	v.SetDefault("notifications.log_retention", DefaultLogRetention)

	v.SetDefault("messages.share_prompt", DefaultMessages.SharePrompt)
	v.SetDefault("messages.share_button", DefaultMessages.ShareButton)
	v.SetDefault("messages.contact_unreadable", DefaultMessages.ContactUnreadable)
	v.SetDefault("messages.foreign_contact", DefaultMessages.ForeignContact)
	v.SetDefault("messages.not_registered", DefaultMessages.NotRegistered)
	v.SetDefault("messages.linked", DefaultMessages.Linked)
	v.SetDefault("messages.link_failed", DefaultMessages.LinkFailed)
	v.SetDefault("messages.fallback", DefaultMessages.Fallback)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}
