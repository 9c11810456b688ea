package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mana-Robotics/televoodoo-viewer/metric"
)

// Metrics holds Prometheus metrics for the dispatcher
type Metrics struct {
	writesTotal      *prometheus.CounterVec
	authOK           prometheus.Counter
	authFailed       prometheus.Counter
	posesTransformed prometheus.Counter
	decodeErrors     prometheus.Counter
}

// newMetrics creates and registers dispatcher metrics. Returns nil if
// no registry is provided (nil input = nil feature pattern).
func newMetrics(registry *metric.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "dispatch",
			Name:      "writes_total",
			Help:      "Characteristic writes handled, by channel",
		}, []string{"char"}),
		authOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "dispatch",
			Name:      "auth_ok_total",
			Help:      "Auth writes matching the session code",
		}),
		authFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "dispatch",
			Name:      "auth_failed_total",
			Help:      "Auth writes not matching the session code",
		}),
		posesTransformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "dispatch",
			Name:      "poses_transformed_total",
			Help:      "Pose samples decoded and transformed",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "dispatch",
			Name:      "decode_errors_total",
			Help:      "Writes dropped because decoding failed",
		}),
	}

	_ = registry.RegisterCounterVec("dispatch", "writes_total", m.writesTotal)
	_ = registry.RegisterCounter("dispatch", "auth_ok", m.authOK)
	_ = registry.RegisterCounter("dispatch", "auth_failed", m.authFailed)
	_ = registry.RegisterCounter("dispatch", "poses_transformed", m.posesTransformed)
	_ = registry.RegisterCounter("dispatch", "decode_errors", m.decodeErrors)

	return m
}
