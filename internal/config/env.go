package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv. The second name in each pair is
// the legacy spelling, honored when the first is unset.
const (
	EnvPracticumToken    = "PRACTICUM_TOKEN"
	EnvPracticumEndpoint = "PRACTICUM_ENDPOINT"
	EnvTelegramToken     = "TELEGRAM_TOKEN"
	EnvTelegramTokenOld  = "TOKEN"
	EnvTelegramChatID    = "TELEGRAM_CHAT_ID"
	EnvTelegramChatIDOld = "CHAT_ID"
	EnvLogLevel          = "HWBOT_LOG_LEVEL"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// ApplyEnv overlays environment values on cfg. lookup is os.LookupEnv in
// production.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(names ...string) (string, bool) {
		for _, n := range names {
			if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	if v, ok := get(EnvPracticumToken); ok {
		cfg.Practicum.Token = v
	}
	if v, ok := get(EnvPracticumEndpoint); ok {
		cfg.Practicum.Endpoint = v
	}
	if v, ok := get(EnvTelegramToken, EnvTelegramTokenOld); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := get(EnvTelegramChatID, EnvTelegramChatIDOld); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q", EnvTelegramChatID, v)
		}
		cfg.Telegram.ChatID = id
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	return nil
}
