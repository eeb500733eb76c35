package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal   *prometheus.CounterVec
	layerDuration *prometheus.HistogramVec
	rowsUpserted  *prometheus.CounterVec
	restatements  *prometheus.CounterVec
	malformedRows *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastCycleTime prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usageprep_cycles_total",
				Help: "Refresh cycles completed, by final status",
			},
			[]string{"status"},
		),
		layerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usageprep_layer_duration_seconds",
				Help:    "Duration of one layer recomputation within a cycle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"layer"},
		),
		rowsUpserted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usageprep_rows_upserted_total",
				Help: "Derived rows written, by table",
			},
			[]string{"table"},
		),
		restatements: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usageprep_restatements_total",
				Help: "Derived rows overwritten with different values because late raw data arrived",
			},
			[]string{"table"},
		),
		malformedRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usageprep_malformed_rows_total",
				Help: "Raw rows skipped as malformed, by source",
			},
			[]string{"source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usageprep_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastCycleTime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "usageprep_last_cycle_timestamp_seconds",
				Help: "Unix time of the most recently completed cycle",
			},
		),
	}
}

// RecordCycle records one completed cycle with its final status.
func (r *Recorder) RecordCycle(status string) {
	r.cyclesTotal.WithLabelValues(status).Inc()
}

// RecordLayerDuration records how long one layer took within a cycle.
func (r *Recorder) RecordLayerDuration(layer string, seconds float64) {
	r.layerDuration.WithLabelValues(layer).Observe(seconds)
}

// RecordRowsUpserted records rows written to a derived table.
func (r *Recorder) RecordRowsUpserted(table string, n int) {
	r.rowsUpserted.WithLabelValues(table).Add(float64(n))
}

// RecordRestatements records overwritten derived rows.
func (r *Recorder) RecordRestatements(table string, n int) {
	r.restatements.WithLabelValues(table).Add(float64(n))
}

// RecordMalformedRows records skipped raw rows.
func (r *Recorder) RecordMalformedRows(source string, n int) {
	if n > 0 {
		r.malformedRows.WithLabelValues(source).Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetLastCycleTime records when the last cycle completed.
func (r *Recorder) SetLastCycleTime(t time.Time) {
	r.lastCycleTime.Set(float64(t.Unix()))
}
