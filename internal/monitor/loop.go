// Package monitor runs the poll/detect/notify loop.
//
// One Loop tracks one submission feed. It owns the poll cursor and the last
// sent text; a cycle always finishes before the next one starts, so neither
// needs locking.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/homework"
	"hwbot/internal/practicum"
	"hwbot/internal/storage"
	logx "hwbot/pkg/logx"
)

// ErrCritical is returned by Run when the status API breaks its response
// contract. Waiting does not fix that, so the loop stops.
var ErrCritical = errors.New("critical poll failure")

const (
	// DefaultLookback is how far back the first query reaches (about one month).
	DefaultLookback = 2629743 * time.Second

	DefaultFailurePrefix = "Program failure: "
)

type Fetcher interface {
	Fetch(ctx context.Context, since int64) (any, error)
}

type Sender interface {
	Send(ctx context.Context, text string) error
}

type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, cp storage.Checkpoint) error
	LoadCheckpoint(ctx context.Context) (storage.Checkpoint, bool, error)
}

// Observer is told about every finished cycle (metrics, watchdog).
// It runs on the loop goroutine and must not block.
type Observer interface {
	ObserveCycle(rep CycleReport)
}

type ObserverFunc func(rep CycleReport)

func (f ObserverFunc) ObserveCycle(rep CycleReport) { f(rep) }

// Observers fans a report out in order.
type Observers []Observer

func (obs Observers) ObserveCycle(rep CycleReport) {
	for _, o := range obs {
		if o != nil {
			o.ObserveCycle(rep)
		}
	}
}

type Config struct {
	Schedule Schedule
	// Lookback sets the initial cursor to now-Lookback. 0 means DefaultLookback.
	Lookback time.Duration
	// FallbackText is the candidate when the window holds no submission.
	FallbackText string
	// FailurePrefix starts the message sent for unexpected failures.
	FailurePrefix string
	// RestoreState resumes cursor and last text from the checkpoint store.
	RestoreState bool
	// StallAfter is how long one cycle may run before Stalled reports it.
	// 0 disables the check.
	StallAfter time.Duration
}

type Deps struct {
	Fetcher   Fetcher
	Extractor *homework.Extractor
	Notifier  Sender
	Store     Checkpointer // optional
	Observer  Observer     // optional
	Log       logx.Logger
	Now       func() time.Time // optional
}

type Loop struct {
	cfg Config

	fetcher   Fetcher
	extractor *homework.Extractor
	notifier  Sender
	store     Checkpointer
	observer  Observer
	log       logx.Logger
	now       func() time.Time

	cursor int64
	last   string

	// busySince is the start of the running cycle in unix nanos, 0 when idle.
	busySince atomic.Int64
}

func New(cfg Config, deps Deps) (*Loop, error) {
	if cfg.Schedule == nil {
		return nil, errors.New("monitor: schedule required")
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Notifier == nil {
		return nil, errors.New("monitor: fetcher, extractor and notifier are required")
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if strings.TrimSpace(cfg.FallbackText) == "" {
		cfg.FallbackText = homework.NoSubmissionText
	}
	if cfg.FailurePrefix == "" {
		cfg.FailurePrefix = DefaultFailurePrefix
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		notifier:  deps.Notifier,
		store:     deps.Store,
		observer:  deps.Observer,
		log:       log,
		now:       now,
		cursor:    now().Add(-cfg.Lookback).Unix(),
	}, nil
}

// Cursor returns the lower bound of the next query window.
func (l *Loop) Cursor() int64 { return l.cursor }

// LastText returns the last notification text the loop acted on.
func (l *Loop) LastText() string { return l.last }

// Stalled reports whether the running cycle has exceeded StallAfter, as when
// a fetch or send hangs. Safe to call from any goroutine.
func (l *Loop) Stalled(now time.Time) bool {
	since := l.busySince.Load()
	if l.cfg.StallAfter <= 0 || since == 0 {
		return false
	}
	return now.Sub(time.Unix(0, since)) > l.cfg.StallAfter
}

// Run polls until ctx is cancelled (returns nil) or the response contract is
// broken (returns an error wrapping ErrCritical).
func (l *Loop) Run(ctx context.Context) error {
	l.restore(ctx)
	l.log.Info("poll loop started", logx.Int64("cursor", l.cursor))

	for {
		if ctx.Err() != nil {
			l.log.Info("poll loop stopped", logx.Int64("cursor", l.cursor))
			return nil
		}

		rep := l.RunCycle(ctx)
		if rep.Outcome == OutcomeCritical {
			return fmt.Errorf("%w: %w", ErrCritical, rep.Err)
		}

		now := l.now()
		wait := l.cfg.Schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		if !sleep(ctx, wait) {
			l.log.Info("poll loop stopped", logx.Int64("cursor", l.cursor))
			return nil
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RunCycle performs exactly one fetch/validate/extract/compare/notify pass.
// Only the critical outcome should stop the caller.
func (l *Loop) RunCycle(ctx context.Context) (rep CycleReport) {
	start := time.Now()
	rep = CycleReport{ID: uuid.NewString(), Started: start, CursorBefore: l.cursor}
	log := l.log.With(logx.String("cycle", rep.ID))
	l.busySince.Store(start.UnixNano())

	defer func() {
		if r := recover(); r != nil {
			rep.Outcome = OutcomeUnexpected
			rep.Err = fmt.Errorf("panic: %v", r)
			log.Error("cycle panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			l.reportUnexpected(ctx, log, rep.Err)
		}
		l.busySince.Store(0)
		rep.Took = time.Since(start)
		rep.Cursor = l.cursor
		if l.observer != nil {
			l.observer.ObserveCycle(rep)
		}
	}()

	l.cycle(ctx, log, &rep)
	return rep
}

func (l *Loop) cycle(ctx context.Context, log logx.Logger, rep *CycleReport) {
	rep.Stage = StageFetch
	payload, err := l.fetcher.Fetch(ctx, l.cursor)
	if err != nil {
		l.fail(ctx, log, rep, err)
		return
	}

	rep.Stage = StageValidate
	records, err := homework.Validate(payload)
	if err != nil {
		l.fail(ctx, log, rep, err)
		return
	}

	rep.Stage = StageExtract
	candidate, err := homework.Candidate(records, l.extractor, l.cfg.FallbackText)
	if err != nil {
		l.fail(ctx, log, rep, err)
		return
	}

	rep.Stage = StageNotify
	if homework.Detect(candidate, l.last) == homework.Changed {
		rep.Changed = true
		if err := l.send(ctx, candidate); err != nil {
			rep.SendErr = err
			log.Warn("state change not delivered", logx.Err(err))
		}
		// Observed, not necessarily delivered.
		l.last = candidate
	}

	if cd, ok := homework.CurrentDate(payload); ok {
		l.cursor = cd
	} else {
		log.Warn("response has no usable current_date; cursor kept", logx.Int64("cursor", l.cursor))
	}

	rep.Outcome = OutcomeOK
	log.Info("cycle complete",
		logx.Int("records", len(records)),
		logx.Bool("changed", rep.Changed),
		logx.Int64("cursor", l.cursor),
	)
	if rep.Changed || l.cursor != rep.CursorBefore {
		l.checkpoint(ctx, log)
	}
}

func (l *Loop) fail(ctx context.Context, log logx.Logger, rep *CycleReport, err error) {
	rep.Err = err
	rep.Outcome = classify(ctx, err)
	fields := []logx.Field{logx.Err(err), logx.String("stage", string(rep.Stage)), logx.Int64("cursor", l.cursor)}

	switch rep.Outcome {
	case OutcomeCritical:
		log.Critical("status API response is not an object; stopping", fields...)
	case OutcomeCancelled:
		log.Debug("cycle interrupted by shutdown", fields...)
	case OutcomeContained:
		log.Warn("cycle failed; will retry next interval", fields...)
	default:
		log.Error("unexpected cycle failure", fields...)
		l.reportUnexpected(ctx, log, err)
	}
}

func classify(ctx context.Context, err error) Outcome {
	if errors.Is(err, homework.ErrNotAMapping) {
		return OutcomeCritical
	}
	if ctx.Err() != nil {
		return OutcomeCancelled
	}
	var (
		fe *practicum.FetchError
		ve *homework.ValidationError
		ee *homework.ExtractionError
	)
	if errors.As(err, &fe) || errors.As(err, &ve) || errors.As(err, &ee) {
		return OutcomeContained
	}
	return OutcomeUnexpected
}

// reportUnexpected tells the operator about a defect. It leaves the
// notification state alone.
func (l *Loop) reportUnexpected(ctx context.Context, log logx.Logger, err error) {
	if ctx.Err() != nil {
		return
	}
	if serr := l.send(ctx, l.cfg.FailurePrefix+err.Error()); serr != nil {
		log.Warn("failure report not delivered", logx.Err(serr))
	}
}

// send is Notifier.Send with a panic turned into a send error, so delivery
// stays best-effort.
func (l *Loop) send(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return l.notifier.Send(ctx, text)
}

func (l *Loop) restore(ctx context.Context) {
	if !l.cfg.RestoreState || l.store == nil {
		return
	}
	cp, ok, err := l.store.LoadCheckpoint(ctx)
	if err != nil {
		l.log.Warn("checkpoint load failed; starting fresh", logx.Err(err))
		return
	}
	if !ok {
		return
	}
	l.cursor = cp.Cursor
	l.last = cp.LastText
	l.log.Info("checkpoint restored", logx.Int64("cursor", cp.Cursor), logx.Time("saved_at", cp.UpdatedAt))
}

func (l *Loop) checkpoint(ctx context.Context, log logx.Logger) {
	if l.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	cp := storage.Checkpoint{Cursor: l.cursor, LastText: l.last, UpdatedAt: l.now()}
	if err := l.store.SaveCheckpoint(sctx, cp); err != nil {
		log.Warn("checkpoint save failed", logx.Err(err))
	}
}
