package config

import "time"

// Default values for configuration.
const (
	DefaultEnvironment = EnvDevelopment
	DefaultLogLevel    = "info"

	DefaultWebhookPath            = "api/communications/telegram/webhook"
	DefaultTelegramRequestTimeout = 10 * time.Second
	DefaultTelegramPollTimeout    = 30 * time.Second

	DefaultServerAddr            = ":8080"
	DefaultGinMode               = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 15 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultDBPath = "taskbridge.db"

	DefaultSendTimeout  = 10 * time.Second
	DefaultLogRetention = 30 * 24 * time.Hour
)

// DefaultMessages are the chat replies used when config.yaml does not override them.
var DefaultMessages = MessagesConfig{
	SharePrompt:       "Hi! Please share your phone to link your account.",
	ShareButton:       "📱 Share my phone",
	ContactUnreadable: "Could not read phone/chat.",
	ForeignContact:    "Please share your own number using the button below.",
	NotRegistered:     "Your number is not registered in our system.",
	Linked:            "Linked! You will now receive task updates here.",
	LinkFailed:        "Something went wrong linking your account.",
	Fallback:          "Type /start to (re)link your phone, or wait for task notifications.",
}

// DefaultTasks enables the maintenance jobs with conservative schedules.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance":        {Enabled: true, Schedule: "0 0 3 * * *"},
	"delivery_log_retention": {Enabled: true, Schedule: "0 30 3 * * *"},
	"bridge_start_retry":     {Enabled: true, Schedule: "0 */5 * * * *"},
}
