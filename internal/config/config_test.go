package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

var fullEnv = map[string]string{
	EnvPracticumToken: "p-token",
	EnvTelegramToken:  "123:abc",
	EnvTelegramChatID: "42",
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseWithoutFileUsesDefaultsAndEnv(t *testing.T) {
	m := NewConfigManager("")
	m.SetEnv(envMap(fullEnv))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.EqualValues(t, 42, cfg.Telegram.ChatID)
	assert.Equal(t, "10m", cfg.Poll.Schedule)
	assert.Equal(t, "2629743s", cfg.Poll.Lookback)
	assert.True(t, cfg.Logging.Console)
	assert.Same(t, cfg, m.Get())
}

func TestParseYAML(t *testing.T) {
	p := writeFile(t, "hwbot.yaml", `
telegram:
  chat_id: 7
  thread_id: 3
poll:
  schedule: "*/5 * * * *"
  fallback_text: "nothing yet"
statuses:
  approved: "accepted"
  reviewing: "in review"
logging:
  level: debug
storage:
  driver: file
  path: ./state
  restore_state: true
`)
	m := NewConfigManager(p)
	m.SetEnv(envMap(map[string]string{EnvPracticumToken: "p", EnvTelegramToken: "t"}))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.EqualValues(t, 7, cfg.Telegram.ChatID)
	assert.Equal(t, 3, cfg.Telegram.ThreadID)
	assert.Equal(t, "*/5 * * * *", cfg.Poll.Schedule)
	assert.Equal(t, "nothing yet", cfg.Poll.FallbackText)
	assert.Equal(t, map[string]string{"approved": "accepted", "reviewing": "in review"}, cfg.Statuses)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console, "omitted keys keep defaults")
	assert.True(t, cfg.Storage.RestoreState)
	assert.Equal(t, "15s", cfg.Practicum.RequestTimeout)
}

func TestParseJSONRejectsUnknownAndTrailing(t *testing.T) {
	m := NewConfigManager(writeFile(t, "a.json", `{"poll":{"interval":"5m"}}`))
	_, err := m.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")

	m = NewConfigManager(writeFile(t, "b.json", `{"poll":{"schedule":"5m"}} {}`))
	_, err = m.Parse()
	assert.ErrorContains(t, err, "trailing data")

	m = NewConfigManager(writeFile(t, "c.yml", "poll:\n  every: 5m\n"))
	_, err = m.Parse()
	assert.Error(t, err)
}

func TestEnvOverridesFileAndLegacyNames(t *testing.T) {
	p := writeFile(t, "hwbot.json", `{"telegram":{"chat_id":1,"token":"file-token"},"practicum":{"token":"file"}}`)
	m := NewConfigManager(p)
	m.SetEnv(envMap(map[string]string{
		EnvTelegramTokenOld:  "legacy-token",
		EnvTelegramChatIDOld: "-100200",
		EnvPracticumEndpoint: "http://localhost:8080/statuses",
		EnvLogLevel:          "warn",
	}))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Telegram.Token)
	assert.EqualValues(t, -100200, cfg.Telegram.ChatID)
	assert.Equal(t, "file", cfg.Practicum.Token)
	assert.Equal(t, "http://localhost:8080/statuses", cfg.Practicum.Endpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// The new name wins over the legacy one.
	cfg = Default()
	require.NoError(t, ApplyEnv(cfg, envMap(map[string]string{EnvTelegramToken: "new", EnvTelegramTokenOld: "old"})))
	assert.Equal(t, "new", cfg.Telegram.Token)
}

func TestApplyEnvInvalidChatID(t *testing.T) {
	err := ApplyEnv(Default(), envMap(map[string]string{EnvTelegramChatID: "@channel"}))
	assert.ErrorContains(t, err, "invalid chat id")
}

func TestValidateReportsAllMissingCredentials(t *testing.T) {
	err := Default().Validate()
	require.ErrorIs(t, err, ErrMissingCredentials)
	for _, name := range []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]func(c *Config){
		"bad duration":     func(c *Config) { c.Notifier.SendTimeout = "soon" },
		"negative timeout": func(c *Config) { c.Practicum.RequestTimeout = "-1s" },
		"empty statuses":   func(c *Config) { c.Statuses = map[string]string{} },
		"blank verdict":    func(c *Config) { c.Statuses = map[string]string{"approved": " "} },
		"unknown driver":   func(c *Config) { c.Storage.Driver = "redis" },
		"restore no store": func(c *Config) { c.Storage.RestoreState = true },
		"empty schedule":   func(c *Config) { c.Poll.Schedule = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, ApplyEnv(cfg, envMap(fullEnv)))
			require.NoError(t, cfg.Validate())
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, ".env", "HWBOT_TEST_KEEP=from-file\nHWBOT_TEST_NEW=loaded\n")
	t.Setenv("HWBOT_TEST_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("HWBOT_TEST_NEW") })

	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "from-env", os.Getenv("HWBOT_TEST_KEEP"))
	assert.Equal(t, "loaded", os.Getenv("HWBOT_TEST_NEW"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, Duration("x", "15s", time.Second))
	assert.Equal(t, time.Second, Duration("x", "", time.Second))
	assert.Equal(t, time.Second, Duration("x", "0s", time.Second))
	_, err := ParseDurationField("x", "-2s")
	assert.Error(t, err)
}

func TestChangedSections(t *testing.T) {
	a := Default()
	b := Default()
	assert.Empty(t, ChangedSections(a, b))

	b.Logging.Level = "debug"
	b.Poll.Schedule = "5m"
	b.Statuses = map[string]string{"approved": "yes"}
	changed := ChangedSections(a, b)
	assert.Equal(t, []string{"poll", "statuses", "logging"}, changed)
	assert.Equal(t, []string{"poll", "statuses"}, RestartRequired(changed))
}

func TestWatchPublishesValidReloads(t *testing.T) {
	p := writeFile(t, "hwbot.json", `{"logging":{"level":"info","console":true}}`)
	m := NewConfigManager(p)
	m.SetEnv(envMap(fullEnv))
	_, err := m.Load()
	require.NoError(t, err)

	updates := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Invalid content is ignored.
	require.NoError(t, os.WriteFile(p, []byte(`{"logging":{"level":"info"},"bogus":1}`), 0o600))
	time.Sleep(2 * reloadDebounce)
	require.NoError(t, os.WriteFile(p, []byte(`{"logging":{"level":"debug","console":true}}`), 0o600))

	select {
	case cfg := <-updates:
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "debug", m.Get().Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
}

func TestWatchWithoutPathBlocksUntilCancel(t *testing.T) {
	m := NewConfigManager("")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, m.Watch(ctx))
}
