//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "hwbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsSQL string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), migrationsSQL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(at, chat_id, thread_id, text, ok, err, took_ms) VALUES(?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.ChatID, e.ThreadID, e.Text, ok, nullStr(e.Error), e.TookMS,
	)
	return err
}

func (s *sqliteStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoint(id, cursor, last_text, updated_at) VALUES(1,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET cursor=excluded.cursor, last_text=excluded.last_text, updated_at=excluded.updated_at`,
		cp.Cursor, cp.LastText, cp.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) LoadCheckpoint(ctx context.Context) (Checkpoint, bool, error) {
	if s == nil || s.db == nil {
		return Checkpoint{}, false, ErrDisabled
	}
	var (
		cp Checkpoint
		at string
	)
	err := s.db.QueryRowContext(ctx, `SELECT cursor, last_text, updated_at FROM checkpoint WHERE id = 1`).
		Scan(&cp.Cursor, &cp.LastText, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
		cp.UpdatedAt = t
	}
	return cp, true, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
