package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials is wrapped by Validate when any required secret or
// chat id is absent.
var ErrMissingCredentials = errors.New("missing required credentials")

// Validate checks cfg before anything is started. Every missing credential is
// named in a single error so the operator can fix them in one go.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Practicum.Token) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if c.Telegram.ChatID == 0 {
		missing = append(missing, EnvTelegramChatID)
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", ")))
	}
	if strings.TrimSpace(c.Poll.Schedule) == "" {
		errs = append(errs, errors.New("poll.schedule: required"))
	}

	for path, raw := range map[string]string{
		"practicum.request_timeout": c.Practicum.RequestTimeout,
		"poll.lookback":             c.Poll.Lookback,
		"notifier.send_timeout":     c.Notifier.SendTimeout,
		"storage.busy_timeout":      c.Storage.BusyTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	for code, text := range c.Statuses {
		if strings.TrimSpace(code) == "" || strings.TrimSpace(text) == "" {
			errs = append(errs, fmt.Errorf("statuses: empty code or text (%q: %q)", code, text))
		}
	}
	if c.Statuses != nil && len(c.Statuses) == 0 {
		errs = append(errs, errors.New("statuses: table is empty"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none":
		if c.Storage.RestoreState {
			errs = append(errs, errors.New("storage.restore_state: needs a storage driver"))
		}
	case "file", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	if c.Notifier.RatePerSec < 0 || c.Notifier.HistorySize < 0 {
		errs = append(errs, errors.New("notifier: rate_per_sec and history_size must be >= 0"))
	}
	return errors.Join(errs...)
}
