// Package metrics provides Prometheus metrics collection for the hype
// classifier. It covers the labeling, training and serving stages and is
// exposed via the Prometheus metrics endpoint of the serve command.
package metrics

import (
	"hype-classifier/internal/label"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the pipeline.
type Metrics struct {
	// Labeling metrics
	LabeledRows  *prometheus.GaugeVec // Rows per retained label in the last labeling run
	NeutralRows  prometheus.Gauge     // Neutral rows dropped in the last labeling run
	ExcludedRows prometheus.Gauge     // Rows excluded for missing outcome signals
	Thresholds   *prometheus.GaugeVec // Quantile thresholds of the last labeling run

	// Training metrics
	TrainingRuns     prometheus.Counter       // Completed training runs
	TrainingDuration *prometheus.HistogramVec // Fit duration per variant
	HoldoutAccuracy  *prometheus.GaugeVec     // Holdout accuracy per variant
	HoldoutMacroF1   *prometheus.GaugeVec     // Holdout macro F1 per variant

	// Serving metrics
	MLPredictions      *prometheus.CounterVec // Predictions by variant and label
	MLFailures         *prometheus.CounterVec // Failed predictions by variant
	MLModelAge         prometheus.Gauge       // Age of the served artifact in seconds
	MLLatency          prometheus.Histogram   // Prediction latency in seconds
	MLPredictionScores prometheus.Histogram   // Distribution of prediction confidence
	HTTPRequests       *prometheus.CounterVec // HTTP requests by route and status
	RateLimited        prometheus.Counter     // Requests rejected by the rate limiter

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		LabeledRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hype_labeled_rows",
			Help: "Rows per retained label in the last labeling run",
		}, []string{"label"}),
		NeutralRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hype_neutral_rows",
			Help: "Neutral rows dropped in the last labeling run",
		}),
		ExcludedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hype_excluded_rows",
			Help: "Rows excluded for missing outcome signals in the last labeling run",
		}),
		Thresholds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hype_label_threshold",
			Help: "Quantile thresholds used by the last labeling run",
		}, []string{"threshold"}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "hype_training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hype_training_duration_seconds",
			Help:    "Model fit duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"variant"}),
		HoldoutAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hype_holdout_accuracy",
			Help: "Holdout accuracy of the last trained model",
		}, []string{"variant"}),
		HoldoutMacroF1: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hype_holdout_macro_f1",
			Help: "Holdout macro-averaged F1 of the last trained model",
		}, []string{"variant"}),
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of ML predictions made",
		}, []string{"variant", "label"}),
		MLFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of ML prediction failures",
		}, []string{"variant"}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the current ML model in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "ML prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of ML prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// RecordLabeling publishes the outcome of a labeling run.
func (m *Metrics) RecordLabeling(dist label.Distribution, th label.Thresholds) {
	for _, l := range label.Retained {
		m.LabeledRows.WithLabelValues(l.String()).Set(float64(dist.Counts[l]))
	}
	m.NeutralRows.Set(float64(dist.Neutral))
	m.ExcludedRows.Set(float64(dist.Excluded))
	m.Thresholds.WithLabelValues("rating_high").Set(th.RatingHigh)
	m.Thresholds.WithLabelValues("popularity_high").Set(th.PopularityHigh)
	m.Thresholds.WithLabelValues("popularity_low").Set(th.PopularityLow)
}

// RecordEvaluation publishes holdout scores of one variant.
func (m *Metrics) RecordEvaluation(variant string, accuracy, macroF1 float64) {
	m.HoldoutAccuracy.WithLabelValues(variant).Set(accuracy)
	m.HoldoutMacroF1.WithLabelValues(variant).Set(macroF1)
}
