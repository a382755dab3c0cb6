package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is returned (wrapped) when the loaded configuration is invalid.
var ErrValidation = errors.New("invalid configuration")

// Validate checks struct constraints and normalises a few values.
// Webhook preconditions are not enforced here: a bad production webhook setup
// only disables the bridge, it does not stop the service.
func (c *Config) Validate() error {
	switch env := strings.ToLower(strings.TrimSpace(c.Environment)); env {
	case "", "dev", "test", EnvDevelopment:
		c.Environment = EnvDevelopment
	case "prod", EnvProduction:
		c.Environment = EnvProduction
	default:
		// Only production selects the webhook; every other value polls.
		slog.Warn("Unknown environment, falling back to development", "environment", c.Environment)
		c.Environment = EnvDevelopment
	}
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Telegram.WebhookPath = strings.Trim(c.Telegram.WebhookPath, "/")

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
