package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// Journal receives every delivery attempt. storage.Store satisfies it.
type Journal interface {
	AppendDelivery(ctx context.Context, e storage.DeliveryEntry) error
}

// Notifier sends text to one fixed chat.
//
// It is safe for concurrent use, although the poll loop calls it from a
// single goroutine.
type Notifier struct {
	sender  kit.Sender
	to      kit.ChatTarget
	log     logx.Logger
	journal Journal

	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

// New creates a notifier. journal may be nil.
func New(cfg Config, sender kit.Sender, to kit.ChatTarget, journal Journal, log logx.Logger) *Notifier {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		sender:  sender,
		to:      to,
		log:     log,
		journal: journal,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Send delivers text once. Failures are logged and returned as *SendError;
// callers must not treat them as fatal.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return &SendError{Err: ErrEmptyText}
	}

	start := time.Now()
	err := n.deliver(ctx, text)
	took := time.Since(start)

	item := HistoryItem{At: start, Text: text, OK: err == nil}
	if err != nil {
		item.Error = err.Error()
		n.log.Error("notification not sent",
			logx.Err(err),
			logx.Int64("chat_id", n.to.ChatID),
			logx.Duration("took", took),
		)
	} else {
		n.log.Info("notification sent",
			logx.Int64("chat_id", n.to.ChatID),
			logx.Duration("took", took),
		)
	}
	n.remember(item)
	n.record(ctx, item, took)

	if err != nil {
		return &SendError{Err: err}
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
	defer cancel()
	_, err = n.sender.SendText(sctx, n.to, text, &kit.SendOptions{DisablePreview: n.cfg.DisablePreview})
	return err
}

func (n *Notifier) remember(item HistoryItem) {
	n.hmu.Lock()
	defer n.hmu.Unlock()
	n.history = append(n.history, item)
	if over := len(n.history) - n.cfg.HistorySize; over > 0 {
		n.history = append(n.history[:0], n.history[over:]...)
	}
}

func (n *Notifier) record(ctx context.Context, item HistoryItem, took time.Duration) {
	if n.journal == nil {
		return
	}
	// The journal must not be skipped because the caller is shutting down.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := n.journal.AppendDelivery(jctx, storage.DeliveryEntry{
		At:       item.At,
		ChatID:   n.to.ChatID,
		ThreadID: n.to.ThreadID,
		Text:     item.Text,
		OK:       item.OK,
		Error:    item.Error,
		TookMS:   took.Milliseconds(),
	})
	if err != nil {
		n.log.Warn("delivery journal append failed", logx.Err(err))
	}
}

// History returns recent delivery attempts, oldest first.
func (n *Notifier) History() []HistoryItem {
	n.hmu.Lock()
	defer n.hmu.Unlock()
	return append([]HistoryItem(nil), n.history...)
}
