package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/swingscreener/internal/contracts"
)

// Metrics holds all Prometheus collectors for the screener.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal     *prometheus.CounterVec // labels: result
	ScanDuration   prometheus.Histogram
	ActiveScans    prometheus.Gauge
	Instruments    *prometheus.CounterVec // labels: status
	Rejections     *prometheus.CounterVec // labels: stage
	Candidates     prometheus.Gauge
	FetchBatches   *prometheus.CounterVec // labels: result
	FetchDuration  prometheus.Histogram
	MarketCapCalls prometheus.Counter
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_scans_total",
			Help: "Completed scans by final state",
		}, []string{"result"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_scan_duration_seconds",
			Help:    "Wall time of a full scan",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		ActiveScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_active_scans",
			Help: "Scans currently running",
		}),
		Instruments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_instruments_total",
			Help: "Evaluated instruments by outcome",
		}, []string{"status"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_rejections_total",
			Help: "Rejected instruments by filter stage",
		}, []string{"stage"}),
		Candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_scan_candidates",
			Help: "Admitted candidates in the most recent scan",
		}),
		FetchBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_fetch_batches_total",
			Help: "Market data batches by result",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_fetch_duration_seconds",
			Help:    "Duration of one market data batch",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MarketCapCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_market_cap_lookups_total",
			Help: "Fundamental lookups issued",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ScansTotal,
		m.ScanDuration,
		m.ActiveScans,
		m.Instruments,
		m.Rejections,
		m.Candidates,
		m.FetchBatches,
		m.FetchDuration,
		m.MarketCapCalls,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ScanStarted bumps the active gauge
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.ActiveScans.Inc()
}

// ScanFinished records a completed, cancelled or failed scan
func (m *Metrics) ScanFinished(result *contracts.ScanResult, state contracts.RunState) {
	if m == nil {
		return
	}
	m.ActiveScans.Dec()
	m.ScansTotal.WithLabelValues(string(state)).Inc()
	if result == nil {
		return
	}

	m.ScanDuration.Observe(result.Duration().Seconds())
	m.Candidates.Set(float64(len(result.Candidates)))
	m.Instruments.WithLabelValues(string(contracts.StatusAdmitted)).Add(float64(result.Admitted))
	m.Instruments.WithLabelValues(string(contracts.StatusRejected)).Add(float64(result.Rejected))
	m.Instruments.WithLabelValues(string(contracts.StatusSkipped)).Add(float64(result.Skipped))
	for stage, n := range result.RejectedByStage {
		m.Rejections.WithLabelValues(string(stage)).Add(float64(n))
	}
}

// BatchFetched records one market data batch
func (m *Metrics) BatchFetched(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.FetchBatches.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// LookupsIssued adds fundamental lookups made by a scan
func (m *Metrics) LookupsIssued(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.MarketCapCalls.Add(float64(n))
}
