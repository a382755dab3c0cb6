package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
)

var (
	// ErrNotConfigured is returned by operations on an instance without a bot token.
	ErrNotConfigured = errors.New("telegram bridge is not configured")

	// ErrInvalidWebhookConfig is returned when production mode lacks a usable
	// public base URL or webhook secret.
	ErrInvalidWebhookConfig = errors.New("invalid telegram webhook configuration")

	// ErrConflict matches any APIError with code 409: another consumer holds
	// the long-poll for this token.
	ErrConflict = errors.New("telegram conflict: another process is polling this token")
)

// APIError is a Bot API failure decoded at the client boundary.
type APIError struct {
	Code        int
	Description string
	Err         error
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram api error %d", e.Code)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports 409 errors as ErrConflict.
func (e *APIError) Is(target error) bool {
	return target == ErrConflict && e.Code == http.StatusConflict
}

// IsChatNotFound reports whether the platform rejected the chat identifier.
func (e *APIError) IsChatNotFound() bool {
	return e.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(e.Description), "chat not found")
}

var sentinelCodes = []struct {
	err  error
	code int
}{
	{bot.ErrorBadRequest, http.StatusBadRequest},
	{bot.ErrorUnauthorized, http.StatusUnauthorized},
	{bot.ErrorForbidden, http.StatusForbidden},
	{bot.ErrorNotFound, http.StatusNotFound},
	{bot.ErrorConflict, http.StatusConflict},
}

// decodeError converts go-telegram/bot errors into *APIError. Errors that did
// not come from the Bot API (network, context expiry) are returned unchanged.
func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &APIError{Code: http.StatusTooManyRequests, Description: tooMany.Error(), Err: err}
	}

	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return &APIError{Code: s.code, Description: describe(err, s.err), Err: err}
		}
	}

	return err
}

// describe extracts the platform description from "<sentinel>, <description>".
func describe(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ", "
	if idx := strings.Index(msg, prefix); idx >= 0 {
		return msg[idx+len(prefix):]
	}
	return msg
}
