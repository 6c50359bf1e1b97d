package metrics

import "github.com/prometheus/client_golang/prometheus"

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

// MetricsWrapper adapts Metrics to the interfaces the ml and server packages
// depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc(variant, label string) {
	w.m.MLPredictions.WithLabelValues(variant, label).Inc()
}

func (w *MetricsWrapper) MLFailuresInc(variant string) {
	w.m.MLFailures.WithLabelValues(variant).Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLTrainingDurationObserve(variant string, seconds float64) {
	w.m.TrainingDuration.WithLabelValues(variant).Observe(seconds)
}

// RateLimited returns the counter bumped for each throttled request.
func (w *MetricsWrapper) RateLimited() MetricsCounter {
	return &CounterWrapper{w.m.RateLimited}
}

// Errors returns the global error counter.
func (w *MetricsWrapper) Errors() MetricsCounter {
	return &CounterWrapper{w.m.ErrorsTotal}
}

// Requests returns the request counter for a route and status code.
func (w *MetricsWrapper) Requests(route, code string) MetricsCounter {
	return &CounterWrapper{w.m.HTTPRequests.WithLabelValues(route, code)}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}
