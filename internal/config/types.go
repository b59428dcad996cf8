package config

// Config is the full hwbot configuration.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "10m").
// Secrets (practicum.token, telegram.token) are normally supplied through
// the environment or a .env file rather than the config file.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`

	// Statuses maps API status codes to the verdict text sent to the chat.
	// Omitted means the built-in approved/reviewing/rejected table.
	Statuses map[string]string `json:"statuses,omitempty"`

	Notifier NotifierConfig `json:"notifier"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type PracticumConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Token    string `json:"token,omitempty"` // do not log
	// RequestTimeout bounds one status request. Default "15s".
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"` // do not log
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// APIURL points at a self-hosted Bot API server.
	APIURL string `json:"api_url,omitempty"`
}

// PollConfig controls the poll loop.
//
// Schedule accepts a duration ("10m"), HH:MM ("00:10") or a cron expression
// ("*/10 * * * *", "@hourly", "cron:..."). Default "10m".
type PollConfig struct {
	Schedule string `json:"schedule"`
	// Lookback sets the first query window. Default "2629743s" (about a month).
	Lookback      string `json:"lookback,omitempty"`
	FallbackText  string `json:"fallback_text,omitempty"`
	FailurePrefix string `json:"failure_prefix,omitempty"`
}

type NotifierConfig struct {
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	SendTimeout    string `json:"send_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./hwbot_state", "restore_state": true }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	// RestoreState resumes cursor and last sent text after a restart.
	RestoreState bool `json:"restore_state,omitempty"`
}

// MetricsConfig controls the /metrics and /healthz listener.
//
// Pprof mounts /debug/pprof on the same listener; a non-loopback Addr then
// requires Token.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9464"
	Pprof   bool   `json:"pprof,omitempty"`
	Token   string `json:"token,omitempty"` // do not log
}

// Default returns the configuration used for omitted fields.
func Default() *Config {
	return &Config{
		Practicum: PracticumConfig{RequestTimeout: "15s"},
		Poll:      PollConfig{Schedule: "10m", Lookback: "2629743s"},
		Notifier:  NotifierConfig{RatePerSec: 1, SendTimeout: "10s", HistorySize: 50},
		Logging:   LoggingConfig{Level: "info", Console: true},
		Storage:   StorageConfig{Driver: "none"},
	}
}
