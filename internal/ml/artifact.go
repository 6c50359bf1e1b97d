package ml

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/features"
	"hype-classifier/internal/label"
)

// ErrCorruptArtifact is returned when stored bytes do not decode into a
// usable artifact.
var ErrCorruptArtifact = errors.New("corrupt model artifact")

// ArtifactFormat tags the serialized envelope.
const ArtifactFormat = "hype-artifact/v1"

// Artifact is a fitted transform paired with the classifier trained on its
// output. Classes maps class indices to labels.
type Artifact struct {
	Kind         Kind
	Classes      []label.Label
	TrainedAt    time.Time
	TrainingRows int
	Transform    *features.Transform
	Model        Classifier
}

// Distribution is a probability per class.
type Distribution struct {
	Classes       []label.Label `json:"classes"`
	Probabilities []float64     `json:"probabilities"`
}

// Top returns the most probable label. Ties resolve to the class listed first.
func (d Distribution) Top() label.Label {
	return d.Classes[argmax(d.Probabilities)]
}

// Confidence returns the probability of the top label.
func (d Distribution) Confidence() float64 {
	return d.Probabilities[argmax(d.Probabilities)]
}

// Map returns the probabilities keyed by label name.
func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d.Classes))
	for i, l := range d.Classes {
		out[l.String()] = d.Probabilities[i]
	}
	return out
}

// PredictProba encodes r and returns the class distribution.
func (a *Artifact) PredictProba(r dataset.Record) Distribution {
	return Distribution{
		Classes:       a.Classes,
		Probabilities: a.Model.PredictProba(a.Transform.Apply(r)),
	}
}

// Predict returns the most probable label for r.
func (a *Artifact) Predict(r dataset.Record) label.Label {
	return a.PredictProba(r).Top()
}

type artifactEnvelope struct {
	Format       string              `json:"format"`
	Kind         Kind                `json:"kind"`
	Classes      []label.Label       `json:"classes"`
	TrainedAt    time.Time           `json:"trained_at"`
	TrainingRows int                 `json:"training_rows"`
	Transform    *features.Transform `json:"preprocessor"`
	Model        json.RawMessage     `json:"model"`
}

// MarshalArtifact serializes a into gzip-compressed JSON. Floats are written
// in shortest round-trip form so a decoded artifact predicts bit-identically.
func MarshalArtifact(a *Artifact) ([]byte, error) {
	if a == nil || a.Model == nil || a.Transform == nil {
		return nil, errors.New("artifact is incomplete")
	}
	model, err := json.Marshal(a.Model)
	if err != nil {
		return nil, fmt.Errorf("encode %s model: %w", a.Kind, err)
	}
	env := artifactEnvelope{
		Format:       ArtifactFormat,
		Kind:         a.Kind,
		Classes:      a.Classes,
		TrainedAt:    a.TrainedAt.UTC(),
		TrainingRows: a.TrainingRows,
		Transform:    a.Transform,
		Model:        model,
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(env); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalArtifact decodes bytes written by MarshalArtifact. Every failure
// wraps ErrCorruptArtifact.
func UnmarshalArtifact(data []byte) (*Artifact, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}

	var env artifactEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if env.Format != ArtifactFormat {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrCorruptArtifact, env.Format)
	}
	if env.Transform == nil {
		return nil, fmt.Errorf("%w: missing preprocessor", ErrCorruptArtifact)
	}
	model, err := decodeClassifier(env.Kind, env.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if model.NumClasses() != len(env.Classes) {
		return nil, fmt.Errorf("%w: model has %d classes, envelope lists %d",
			ErrCorruptArtifact, model.NumClasses(), len(env.Classes))
	}
	if model.NumFeatures() != env.Transform.Width() {
		return nil, fmt.Errorf("%w: model expects %d features, preprocessor yields %d",
			ErrCorruptArtifact, model.NumFeatures(), env.Transform.Width())
	}

	return &Artifact{
		Kind:         env.Kind,
		Classes:      env.Classes,
		TrainedAt:    env.TrainedAt,
		TrainingRows: env.TrainingRows,
		Transform:    env.Transform,
		Model:        model,
	}, nil
}

// WriteArtifactFile exports a to path, creating parent directories.
func WriteArtifactFile(path string, a *Artifact) error {
	data, err := MarshalArtifact(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadArtifactFile loads an artifact exported with WriteArtifactFile.
func ReadArtifactFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return UnmarshalArtifact(data)
}
