package observability

import (
	"log/slog"

	"github.com/aretw0/augeas"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of augeas_commands_total.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics counts and times dispatched engine commands.
type Metrics struct {
	Commands *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "augeas_commands_total",
				Help: "Total number of engine commands by outcome",
			},
			[]string{"op", "outcome"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "augeas_command_errors_total",
				Help: "Total number of failed engine commands by error kind",
			},
			[]string{"op", "kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "augeas_command_duration_seconds",
				Help:    "Duration of engine commands",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.Errors, m.Duration)
	}
	return m
}

// Observe records one command.
func (m *Metrics) Observe(e augeas.CommandEvent) {
	m.Duration.WithLabelValues(e.Op).Observe(e.Duration.Seconds())
	if e.Err == nil {
		m.Commands.WithLabelValues(e.Op, OutcomeOK).Inc()
		return
	}
	m.Commands.WithLabelValues(e.Op, OutcomeError).Inc()
	m.Errors.WithLabelValues(e.Op, e.Kind.String()).Inc()
}

// Hooks returns session hooks feeding m.
func (m *Metrics) Hooks() augeas.Hooks {
	return augeas.Hooks{OnCommand: m.Observe}
}

// LogHooks returns session hooks that log every command at debug level and
// failures at warn level.
func LogHooks(logger *slog.Logger) augeas.Hooks {
	return augeas.Hooks{
		OnCommand: func(e augeas.CommandEvent) {
			if e.Err != nil {
				logger.Warn("command failed",
					"op", e.Op,
					"path", e.Path,
					"kind", e.Kind.String(),
					"err", e.Err,
				)
				return
			}
			logger.Debug("command",
				"op", e.Op,
				"path", e.Path,
				"duration", e.Duration,
			)
		},
	}
}

// Chain returns hooks that call each of hooks in order.
func Chain(hooks ...augeas.Hooks) augeas.Hooks {
	return augeas.Hooks{
		OnCommand: func(e augeas.CommandEvent) {
			for _, h := range hooks {
				if h.OnCommand != nil {
					h.OnCommand(e)
				}
			}
		},
	}
}
