package ml

import (
	"errors"
	"fmt"
	"time"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/label"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the trainer and predictor
type MetricsInterface interface {
	MLPredictionsInc(variant, label string)
	MLFailuresInc(variant string)
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLModelAgeSet(float64)
	MLTrainingDurationObserve(variant string, seconds float64)
}

// ArtifactSource provides serialized artifacts by variant name.
type ArtifactSource interface {
	GetArtifact(variant string) ([]byte, error)
}

// Prediction is the answer for one raw record.
type Prediction struct {
	Label         label.Label        `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      map[string]any     `json:"features"`
}

// ModelInfo describes the loaded artifact.
type ModelInfo struct {
	Variant      Kind          `json:"variant"`
	Classes      []label.Label `json:"classes"`
	Features     []string      `json:"features"`
	Columns      []string      `json:"columns"`
	TrainedAt    time.Time     `json:"trained_at"`
	TrainingRows int           `json:"training_rows"`
}

// Predictor serves one frozen artifact. It holds no mutable state and is safe
// for concurrent use.
type Predictor struct {
	artifact *Artifact
	metrics  MetricsInterface
}

// NewPredictor wraps an in-memory artifact. metrics may be nil.
func NewPredictor(a *Artifact, metrics MetricsInterface) (*Predictor, error) {
	if a == nil || a.Model == nil || a.Transform == nil {
		return nil, errors.New("predictor needs a complete artifact")
	}
	p := &Predictor{artifact: a, metrics: metrics}
	if metrics != nil && !a.TrainedAt.IsZero() {
		metrics.MLModelAgeSet(time.Since(a.TrainedAt).Seconds())
	}
	log.Info().
		Str("variant", string(a.Kind)).
		Time("trained_at", a.TrainedAt).
		Int("features", a.Transform.Width()).
		Msg("Model artifact loaded")
	return p, nil
}

// LoadPredictor reads the artifact of variant from src.
func LoadPredictor(src ArtifactSource, variant Kind, metrics MetricsInterface) (*Predictor, error) {
	data, err := src.GetArtifact(string(variant))
	if err != nil {
		return nil, fmt.Errorf("load %s artifact: %w", variant, err)
	}
	a, err := UnmarshalArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("load %s artifact: %w", variant, err)
	}
	if a.Kind != variant {
		return nil, fmt.Errorf("load %s artifact: %w: stored kind is %s", variant, ErrCorruptArtifact, a.Kind)
	}
	return NewPredictor(a, metrics)
}

// LoadPredictorFile reads an exported artifact file.
func LoadPredictorFile(path string, metrics MetricsInterface) (*Predictor, error) {
	a, err := ReadArtifactFile(path)
	if err != nil {
		return nil, err
	}
	return NewPredictor(a, metrics)
}

// Artifact returns the served artifact.
func (p *Predictor) Artifact() *Artifact {
	return p.artifact
}

// PredictOne classifies a raw record. Outcome columns are ignored and never
// required; missing features are imputed and unseen categories encode as
// zeros.
func (p *Predictor) PredictOne(r dataset.Record) (Prediction, error) {
	if p == nil || p.artifact == nil {
		return Prediction{}, errors.New("predictor not initialized")
	}
	start := time.Now()
	variant := string(p.artifact.Kind)
	defer func() {
		if p.metrics != nil {
			p.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	dist := p.artifact.PredictProba(r)
	if !validProbabilities(dist.Probabilities) {
		if p.metrics != nil {
			p.metrics.MLFailuresInc(variant)
		}
		return Prediction{}, fmt.Errorf("%s produced invalid probabilities %v", variant, dist.Probabilities)
	}

	pred := Prediction{
		Label:         dist.Top(),
		Confidence:    dist.Confidence(),
		Probabilities: dist.Map(),
		Features:      p.artifact.Transform.Echo(r),
	}
	if p.metrics != nil {
		p.metrics.MLPredictionsInc(variant, pred.Label.String())
		p.metrics.MLPredictionScoresObserve(pred.Confidence)
	}
	return pred, nil
}

// Info describes the served model.
func (p *Predictor) Info() ModelInfo {
	a := p.artifact
	return ModelInfo{
		Variant:      a.Kind,
		Classes:      a.Classes,
		Features:     a.Transform.FeatureNames(),
		Columns:      a.Transform.Columns(),
		TrainedAt:    a.TrainedAt,
		TrainingRows: a.TrainingRows,
	}
}
