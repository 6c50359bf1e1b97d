// Package ml trains, persists and serves the hype classifiers. A model is
// always paired with the fitted feature transform it was trained on; the pair
// is the Artifact, which is immutable once built.
package ml

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind identifies a classifier family. It is also the storage key of the
// artifact trained with it.
type Kind string

const (
	KindLogistic Kind = "logistic_regression"
	KindForest   Kind = "random_forest"
)

// Kinds lists the supported classifier families in training order.
var Kinds = []Kind{KindLogistic, KindForest}

// ParseKind converts a configured variant name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown model variant %q", s)
}

// Classifier maps an encoded feature vector to class probabilities over
// class indices 0..NumClasses()-1. Implementations are immutable after
// fitting and safe for concurrent use.
type Classifier interface {
	Kind() Kind
	NumClasses() int
	NumFeatures() int
	PredictProba(x []float64) []float64
}

// Predict returns the index of the most probable class. Ties resolve to the
// lowest index.
func Predict(c Classifier, x []float64) int {
	return argmax(c.PredictProba(x))
}

func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

type decoder func(data json.RawMessage) (Classifier, error)

var decoders = map[Kind]decoder{
	KindLogistic: func(data json.RawMessage) (Classifier, error) {
		var m LogisticRegression
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	},
	KindForest: func(data json.RawMessage) (Classifier, error) {
		var m RandomForest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	},
}

func decodeClassifier(kind Kind, data json.RawMessage) (Classifier, error) {
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("no decoder for model kind %q", kind)
	}
	return dec(data)
}

func validProbabilities(p []float64) bool {
	sum := 0.0
	for _, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1+1e-9 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) < 1e-6
}
