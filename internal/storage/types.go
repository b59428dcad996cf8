package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl journal + json checkpoint)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Checkpoint is the poll loop state worth surviving a restart.
type Checkpoint struct {
	Cursor    int64     `json:"cursor"`
	LastText  string    `json:"last_text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryEntry records one notification attempt.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At       time.Time `json:"at"`
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Text     string    `json:"text"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	TookMS   int64     `json:"took_ms"`
}
