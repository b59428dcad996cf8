// Package systemd sends sd_notify readiness and watchdog messages.
//
// Outside systemd (no NOTIFY_SOCKET) every call is a silent no-op.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"hwbot/internal/monitor"
	logx "hwbot/pkg/logx"
)

type Notifier struct {
	log logx.Logger

	notify   func(state string) (bool, error)
	interval func() (time.Duration, error)
}

func New(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		log:      log,
		notify:   func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		interval: func() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) },
	}
}

func (n *Notifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Status sets the free-form unit status shown by systemctl.
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }

// ObserveCycle implements monitor.Observer: the unit status shows the last
// cycle outcome and cursor.
func (n *Notifier) ObserveCycle(rep monitor.CycleReport) {
	n.Status(fmt.Sprintf("last cycle %s, cursor %d", rep.Outcome, rep.Cursor))
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}

// RunWatchdog pings the systemd watchdog at half of WatchdogSec until ctx
// ends. A ping is skipped while healthy reports false, so systemd restarts
// the unit once WatchdogSec passes without one. The caller decides what
// unhealthy means. It returns at once when the watchdog is not enabled.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() bool) {
	every, err := n.interval()
	if err != nil {
		n.log.Warn("watchdog config invalid", logx.Err(err))
		return
	}
	if every <= 0 {
		return
	}
	every /= 2
	n.log.Info("watchdog enabled", logx.Duration("ping_every", every))

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if healthy != nil && !healthy() {
				n.log.Warn("watchdog ping skipped; service unhealthy")
				continue
			}
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
