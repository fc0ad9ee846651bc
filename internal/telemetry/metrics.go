// Package telemetry exposes prometheus metrics for the maintenance agent.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry prometheus.Registerer

	runsTotal   prometheus.Counter
	runDuration prometheus.Histogram

	reclaimBytesFreed   prometheus.Counter
	reclaimFilesDeleted prometheus.Counter
	reclaimFilesSkipped prometheus.Counter
	trimProcesses       prometheus.Counter

	selfUpdateChecks *prometheus.CounterVec

	lastCPUPercent    prometheus.Gauge
	lastMemoryPercent prometheus.Gauge
	lastDiskFreeGB    prometheus.Gauge
}

func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of maintenance runs",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of maintenance runs",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		reclaimBytesFreed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reclaim_bytes_freed_total",
				Help:      "Total bytes freed by reclamation",
			},
		),
		reclaimFilesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reclaim_files_deleted_total",
				Help:      "Total files deleted by reclamation",
			},
		),
		reclaimFilesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reclaim_files_skipped_total",
				Help:      "Total deletion attempts that failed and were skipped",
			},
		),
		trimProcesses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trim_processes_total",
				Help:      "Total successful working-set trim invocations",
			},
		),
		selfUpdateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selfupdate_checks_total",
				Help:      "Self-update evaluations by terminal status",
			},
			[]string{"status"},
		),
		lastCPUPercent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_cpu_percent",
				Help:      "CPU utilization sampled by the last run",
			},
		),
		lastMemoryPercent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_memory_percent",
				Help:      "Memory utilization sampled by the last run",
			},
		),
		lastDiskFreeGB: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_disk_free_gb",
				Help:      "System drive free space sampled by the last run",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.reclaimBytesFreed,
		m.reclaimFilesDeleted,
		m.reclaimFilesSkipped,
		m.trimProcesses,
		m.selfUpdateChecks,
		m.lastCPUPercent,
		m.lastMemoryPercent,
		m.lastDiskFreeGB,
	)

	return m
}

func (m *Metrics) ObserveRun(duration time.Duration) {
	m.runsTotal.Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveSample(cpuPercent, memoryPercent, diskFreeGB float64) {
	m.lastCPUPercent.Set(cpuPercent)
	m.lastMemoryPercent.Set(memoryPercent)
	m.lastDiskFreeGB.Set(diskFreeGB)
}

func (m *Metrics) ObserveReclaim(bytesFreed int64, deleted, skipped int) {
	m.reclaimBytesFreed.Add(float64(bytesFreed))
	m.reclaimFilesDeleted.Add(float64(deleted))
	m.reclaimFilesSkipped.Add(float64(skipped))
}

func (m *Metrics) ObserveTrim(trimmed int) {
	m.trimProcesses.Add(float64(trimmed))
}

func (m *Metrics) ObserveSelfUpdate(status string) {
	m.selfUpdateChecks.WithLabelValues(status).Inc()
}
