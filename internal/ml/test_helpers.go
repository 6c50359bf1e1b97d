package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	failures         int
	latencyCount     int
	modelAge         float64
	predictionScores []float64
	trainings        map[string]int
}

func (m *MockMetrics) MLPredictionsInc(variant, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[variant+"/"+label]++
}

func (m *MockMetrics) MLFailuresInc(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyCount++
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLTrainingDurationObserve(variant string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trainings == nil {
		m.trainings = make(map[string]int)
	}
	m.trainings[variant]++
}

func (m *MockMetrics) totalPredictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.predictions {
		n += c
	}
	return n
}
