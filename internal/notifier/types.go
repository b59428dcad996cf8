package notifier

import (
	"errors"
	"time"
)

var ErrEmptyText = errors.New("notification text is empty")

// Config controls delivery of notifications.
type Config struct {
	// RatePerSec caps outgoing messages. 0 means 1/s.
	RatePerSec int
	// SendTimeout bounds one delivery attempt. 0 means 10s.
	SendTimeout time.Duration
	// HistorySize is the number of recent deliveries kept in memory. 0 means 50.
	HistorySize int
	// DisablePreview suppresses link previews in sent messages.
	DisablePreview bool
}

// HistoryItem is one delivery attempt, successful or not.
type HistoryItem struct {
	At    time.Time
	Text  string
	OK    bool
	Error string
}

// SendError wraps a failed delivery. It is logged by the notifier and must
// never stop the poll loop.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send notification: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }
