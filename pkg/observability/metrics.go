package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the update pipeline
type Metrics struct {
	// Pipeline metrics
	UpdatesStagedTotal   prometheus.Counter
	UpdatesAppliedTotal  prometheus.Counter
	UpdatesRejectedTotal *prometheus.CounterVec
	UpdatesFailedTotal   *prometheus.CounterVec

	// Phase durations
	DescriptorLoadDuration prometheus.Histogram
	UnpackDuration         prometheus.Histogram
	RunDuration            prometheus.Histogram

	// Inventory metrics
	PluginsInstalled  prometheus.Gauge
	PluginsIncomplete prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		UpdatesStagedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "updraft_updates_staged_total",
				Help: "Total number of staged updates considered",
			},
		),
		UpdatesAppliedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "updraft_updates_applied_total",
				Help: "Total number of updates successfully applied",
			},
		),
		UpdatesRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updraft_updates_rejected_total",
				Help: "Total number of updates rejected by reconciliation",
			},
			[]string{"rule"},
		),
		UpdatesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updraft_updates_failed_total",
				Help: "Total number of candidates dropped by a non-policy failure",
			},
			[]string{"phase"},
		),
		DescriptorLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "updraft_descriptor_load_duration_seconds",
				Help:    "Duration of per-candidate descriptor loads",
				Buckets: prometheus.DefBuckets,
			},
		),
		UnpackDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "updraft_unpack_duration_seconds",
				Help:    "Duration of per-candidate artifact extraction",
				Buckets: prometheus.DefBuckets,
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "updraft_run_duration_seconds",
				Help:    "Duration of the whole update run",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		PluginsInstalled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "updraft_plugins_installed",
				Help: "Number of fully loaded plugins in the inventory snapshot",
			},
		),
		PluginsIncomplete: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "updraft_plugins_incomplete",
				Help: "Number of plugins present on disk but not loaded",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.UpdatesStagedTotal,
			m.UpdatesAppliedTotal,
			m.UpdatesRejectedTotal,
			m.UpdatesFailedTotal,
			m.DescriptorLoadDuration,
			m.UnpackDuration,
			m.RunDuration,
			m.PluginsInstalled,
			m.PluginsIncomplete,
		)
	}

	return m
}
