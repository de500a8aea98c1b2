package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinRegime/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	seriesTotal    *prometheus.CounterVec
	missingReturns *prometheus.GaugeVec
	regimeDays     *prometheus.GaugeVec
	stageDuration  *prometheus.HistogramVec
	sinkErrors     *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the pipeline collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		seriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finregime_series_processed_total",
				Help: "Series handled by the pipeline by outcome",
			},
			[]string{"series", "status"},
		),
		missingReturns: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finregime_missing_returns",
				Help: "Missing log returns in the last run",
			},
			[]string{"series"},
		),
		regimeDays: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finregime_regime_days",
				Help: "Trading days per regime in the last run",
			},
			[]string{"series", "regime"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finregime_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		sinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finregime_sink_errors_total",
				Help: "Failed result sink writes",
			},
			[]string{"sink"},
		),
	}
}

// RecordSeries counts one series outcome (processed or skipped).
func (r *Recorder) RecordSeries(name, status string) {
	r.seriesTotal.WithLabelValues(name, status).Inc()
}

// RecordMissingReturns records the missing log-return count of a series.
func (r *Recorder) RecordMissingReturns(name string, n int) {
	r.missingReturns.WithLabelValues(name).Set(float64(n))
}

// RecordRegimeDays sets the day count of every regime; absent regimes are reset to zero.
func (r *Recorder) RecordRegimeDays(name string, counts map[models.Regime]int) {
	for _, reg := range models.AllRegimes() {
		r.regimeDays.WithLabelValues(name, string(reg)).Set(float64(counts[reg]))
	}
}

// RecordStage records stage latency.
func (r *Recorder) RecordStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordSinkError counts a failed sink write.
func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}
