package storage

import (
	"context"
	"errors"
	"strings"

	logx "hwbot/pkg/logx"
)

// Store is the persistence API used by the poll loop and the notifier.
type Store interface {
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	// LoadCheckpoint returns ok=false when nothing was saved yet.
	LoadCheckpoint(ctx context.Context) (cp Checkpoint, ok bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
