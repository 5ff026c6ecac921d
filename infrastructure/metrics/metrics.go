// Package metrics provides Prometheus metrics collection for the
// simulation core, grounded on the teacher's infrastructure/metrics package
// but re-keyed from HTTP/blockchain/database concerns onto the tick loop,
// process admission, and attack-resolution concerns this spec actually has.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/techmad220/hackerexperience-go/infrastructure/config"
)

// Metrics holds every Prometheus collector the engine touches.
type Metrics struct {
	TickDuration      prometheus.Histogram
	ProcessesAdmitted *prometheus.CounterVec // labels: priority
	ProcessesRejected *prometheus.CounterVec // labels: reason (cap, resources)
	ProcessesFinished *prometheus.CounterVec // labels: outcome (completed, cancelled, failed)

	ResourceUtilization *prometheus.GaugeVec // labels: server, axis

	AttacksTotal *prometheus.CounterVec // labels: outcome (blocked, detected, succeeded)

	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	QueuedProcessesGauge   prometheus.Gauge
	RunningProcessesGauge  prometheus.Gauge
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// which may be nil to skip registration (used by tests that construct
// multiple instances in the same process).
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_tick_duration_seconds",
			Help:    "Duration of one process-engine tick.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ProcessesAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_processes_admitted_total",
			Help: "Total processes admitted from the ready queue into the running set.",
		}, []string{"priority"}),
		ProcessesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_processes_rejected_total",
			Help: "Total admission attempts rejected, by reason.",
		}, []string{"reason"}),
		ProcessesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_processes_finished_total",
			Help: "Total processes that left the running set, by outcome.",
		}, []string{"outcome"}),
		ResourceUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "engine_resource_utilization_ratio",
			Help: "Fraction of a server's effective hardware currently allocated, by axis.",
		}, []string{"server", "axis"}),
		AttacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "defense_attacks_total",
			Help: "Total attack attempts resolved, by outcome.",
		}, []string{"outcome"}),
		StoreOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worldstore_operations_total",
			Help: "Total World Store operations, by operation and status.",
		}, []string{"operation", "status"}),
		StoreOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worldstore_operation_duration_seconds",
			Help:    "World Store operation duration in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),
		QueuedProcessesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_queued_processes",
			Help: "Current number of processes in the ready+waiting queues.",
		}),
		RunningProcessesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_running_processes",
			Help: "Current number of processes in the running set.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.TickDuration,
			m.ProcessesAdmitted,
			m.ProcessesRejected,
			m.ProcessesFinished,
			m.ResourceUtilization,
			m.AttacksTotal,
			m.StoreOperationsTotal,
			m.StoreOperationDuration,
			m.QueuedProcessesGauge,
			m.RunningProcessesGauge,
		)
	}
	return m
}

// RecordTick records the wall-clock duration of one engine.Tick call.
func (m *Metrics) RecordTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
}

// RecordAdmission increments the admitted counter for priority.
func (m *Metrics) RecordAdmission(priority string) {
	m.ProcessesAdmitted.WithLabelValues(priority).Inc()
}

// RecordRejection increments the rejected counter for reason ("cap" or
// "resources").
func (m *Metrics) RecordRejection(reason string) {
	m.ProcessesRejected.WithLabelValues(reason).Inc()
}

// RecordFinished increments the finished counter for outcome ("completed",
// "cancelled" or "failed").
func (m *Metrics) RecordFinished(outcome string) {
	m.ProcessesFinished.WithLabelValues(outcome).Inc()
}

// SetResourceUtilization records what fraction of server's axis capacity is
// currently allocated.
func (m *Metrics) SetResourceUtilization(server, axis string, ratio float64) {
	m.ResourceUtilization.WithLabelValues(server, axis).Set(ratio)
}

// RecordAttack increments the attack-outcome counter.
func (m *Metrics) RecordAttack(outcome string) {
	m.AttacksTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreOperation records a World Store call's outcome and duration.
func (m *Metrics) RecordStoreOperation(operation, status string, d time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetQueueDepths updates the queued/running gauges, called once per tick.
func (m *Metrics) SetQueueDepths(queued, running int) {
	m.QueuedProcessesGauge.Set(float64(queued))
	m.RunningProcessesGauge.Set(float64(running))
}

// Enabled reports whether Prometheus metrics should be exposed, defaulting
// to on everywhere except when METRICS_ENABLED explicitly disables it
// (simplified from the teacher's production-vs-non-production default,
// since this spec carries no environment-tiering concept of its own).
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(config.GetEnv("METRICS_ENABLED", "true")))
	switch raw {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

// Init initializes and returns the process-wide Metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(serviceName)
	}
	return global
}

// Global returns the process-wide Metrics instance, initializing it with a
// placeholder service name if Init was never called.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("hackerexperience-engine")
	}
	return global
}
