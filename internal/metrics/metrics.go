// Package metrics exposes poll loop counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hwbot/internal/monitor"
)

const namespace = "hwbot"

// Poll holds the poll loop metrics on a private registry.
type Poll struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      prometheus.Histogram
	cursor        prometheus.Gauge
	lastSuccess   prometheus.Gauge

	mu     sync.Mutex
	status Status
}

// Status is the health view of the poll loop served on /healthz.
type Status struct {
	Cycles      uint64    `json:"cycles"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastCycleAt time.Time `json:"last_cycle_at,omitzero"`
	LastOKAt    time.Time `json:"last_ok_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Cursor      int64     `json:"cursor"`
}

// Healthy is false once the loop hit a critical failure.
func (s Status) Healthy() bool { return s.LastOutcome != string(monitor.OutcomeCritical) }

func New() *Poll {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Poll{
		reg: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "failures_total",
			Help:      "Failed poll cycles by stage",
		}, []string{"stage"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "State change notifications by result",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent in one poll cycle",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		cursor: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cursor_seconds",
			Help:      "Lower bound (unix seconds) of the next query window",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle",
		}),
	}
}

// ObserveCycle implements monitor.Observer.
func (p *Poll) ObserveCycle(rep monitor.CycleReport) {
	p.cycles.WithLabelValues(string(rep.Outcome)).Inc()
	p.duration.Observe(rep.Took.Seconds())
	p.cursor.Set(float64(rep.Cursor))

	switch rep.Outcome {
	case monitor.OutcomeOK:
		p.lastSuccess.Set(float64(rep.Started.Add(rep.Took).Unix()))
	case monitor.OutcomeCancelled:
	default:
		p.failures.WithLabelValues(string(rep.Stage)).Inc()
	}

	p.mu.Lock()
	p.status.Cycles++
	p.status.LastOutcome = string(rep.Outcome)
	p.status.LastCycleAt = rep.Started
	p.status.Cursor = rep.Cursor
	if rep.Outcome == monitor.OutcomeOK {
		p.status.LastOKAt = rep.Started
		p.status.LastError = ""
	} else if rep.Err != nil {
		p.status.LastError = rep.Err.Error()
	}
	p.mu.Unlock()

	if rep.Changed {
		status := "ok"
		if rep.SendErr != nil {
			status = "failed"
		}
		p.notifications.WithLabelValues(status).Inc()
	}
}

func (p *Poll) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Handler serves the registry.
func (p *Poll) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
