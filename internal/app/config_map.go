package app

import (
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/monitor"
	"hwbot/internal/notifier"
	"hwbot/internal/observability/httpserver"
	"hwbot/internal/practicum"
	"hwbot/internal/storage"
	logx "hwbot/pkg/logx"
)

func mapLogConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "none":
		return storage.Config{Driver: "none"}, nil
	case "file":
		return storage.Config{Driver: driver, Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy := config.Duration("storage.busy_timeout", sc.BusyTimeout, time.Second)
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		RatePerSec:     cfg.Notifier.RatePerSec,
		SendTimeout:    config.Duration("notifier.send_timeout", cfg.Notifier.SendTimeout, 10*time.Second),
		HistorySize:    cfg.Notifier.HistorySize,
		DisablePreview: cfg.Notifier.DisablePreview,
	}
}

func mapPracticumConfig(cfg *config.Config) practicum.Config {
	return practicum.Config{
		Endpoint: cfg.Practicum.Endpoint,
		Token:    cfg.Practicum.Token,
		Timeout:  config.Duration("practicum.request_timeout", cfg.Practicum.RequestTimeout, 15*time.Second),
	}
}

func mapLoopConfig(cfg *config.Config) (monitor.Config, error) {
	sched, err := monitor.ParseSchedule(cfg.Poll.Schedule)
	if err != nil {
		return monitor.Config{}, fmt.Errorf("poll.schedule: %w", err)
	}
	return monitor.Config{
		Schedule:      sched,
		Lookback:      config.Duration("poll.lookback", cfg.Poll.Lookback, monitor.DefaultLookback),
		FallbackText:  cfg.Poll.FallbackText,
		FailurePrefix: cfg.Poll.FailurePrefix,
		RestoreState:  cfg.Storage.RestoreState,
		StallAfter:    stallAfter(cfg),
	}, nil
}

// stallAfter bounds one cycle: the fetch, a state change send and a failure
// report send, plus slack for the rate limiter.
func stallAfter(cfg *config.Config) time.Duration {
	fetch := mapPracticumConfig(cfg).Timeout
	send := mapNotifierConfig(cfg).SendTimeout
	return fetch + 2*send + time.Minute
}

func mapVerdicts(cfg *config.Config) (homework.Verdicts, error) {
	table := cfg.Statuses
	if table == nil {
		table = homework.DefaultVerdicts()
	}
	v, err := homework.NewVerdicts(table)
	if err != nil {
		return homework.Verdicts{}, fmt.Errorf("statuses: %w", err)
	}
	return v, nil
}

func mapHTTPConfig(cfg *config.Config) httpserver.Config {
	return httpserver.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Pprof:   cfg.Metrics.Pprof,
		Token:   cfg.Metrics.Token,
		// /debug/pprof/profile streams for 30s by default.
		ReadTimeout: 10 * time.Second,
	}
}
