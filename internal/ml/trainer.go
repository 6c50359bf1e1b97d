package ml

import (
	"context"
	"fmt"
	"slices"
	"time"

	"hype-classifier/internal/features"
	"hype-classifier/internal/label"

	"github.com/rs/zerolog/log"
)

// TrainerConfig configures the training stage.
type TrainerConfig struct {
	TestFraction float64      `yaml:"testFraction" json:"test_fraction"`
	Seed         uint64       `yaml:"seed" json:"seed"`
	Variants     []Kind       `yaml:"variants" json:"variants"`
	Linear       LinearConfig `yaml:"linear" json:"linear"`
	Forest       ForestConfig `yaml:"forest" json:"forest"`
}

// DefaultTrainerConfig holds out 20% with seed 42 and trains both variants.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		TestFraction: 0.2,
		Seed:         42,
		Variants:     slices.Clone(Kinds),
		Linear:       DefaultLinearConfig(),
		Forest:       DefaultForestConfig(),
	}
}

// Validate checks the configuration.
func (c TrainerConfig) Validate() error {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be within (0, 1), got %v", c.TestFraction)
	}
	if len(c.Variants) == 0 {
		return fmt.Errorf("at least one model variant must be trained")
	}
	for _, v := range c.Variants {
		if _, err := ParseKind(string(v)); err != nil {
			return err
		}
	}
	if err := c.Linear.Validate(); err != nil {
		return err
	}
	return c.Forest.Validate()
}

// TrainingResult is the outcome of one training run. Every artifact was
// trained on the same Train partition and shares one fitted transform.
type TrainingResult struct {
	Split     Split
	Train     *label.Table
	Holdout   *label.Table
	Artifacts map[Kind]*Artifact
	Durations map[Kind]time.Duration
}

// Trainer fits the preprocessor and every configured classifier variant.
type Trainer struct {
	cfg     TrainerConfig
	pre     *features.Preprocessor
	metrics MetricsInterface
}

// NewTrainer validates cfg. metrics may be nil.
func NewTrainer(cfg TrainerConfig, pre *features.Preprocessor, metrics MetricsInterface) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pre == nil {
		return nil, fmt.Errorf("trainer needs a preprocessor")
	}
	return &Trainer{cfg: cfg, pre: pre, metrics: metrics}, nil
}

// Train splits ds, fits the transform on the training partition and trains
// each variant. ctx is checked between stages and while growing trees.
func (t *Trainer) Train(ctx context.Context, ds *label.Table) (*TrainingResult, error) {
	if ds.Len() == 0 {
		return nil, features.ErrEmptyTrainingSet
	}
	split, err := StratifiedSplit(ds.Labels, t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	train := ds.Subset(split.Train)
	holdout := ds.Subset(split.Test)

	log.Info().
		Int("train", train.Len()).
		Int("holdout", holdout.Len()).
		Float64("test_fraction", t.cfg.TestFraction).
		Uint64("seed", t.cfg.Seed).
		Msg("Stratified split created")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	transform, err := t.pre.Fit(train.Table)
	if err != nil {
		return nil, fmt.Errorf("fit preprocessor: %w", err)
	}

	classes, y := encodeLabels(train.Labels)
	if len(classes) < 2 {
		return nil, fmt.Errorf("training partition has %d class(es); need at least 2", len(classes))
	}
	x := transform.ApplyAll(train.Records)

	result := &TrainingResult{
		Split:     split,
		Train:     train,
		Holdout:   holdout,
		Artifacts: make(map[Kind]*Artifact, len(t.cfg.Variants)),
		Durations: make(map[Kind]time.Duration, len(t.cfg.Variants)),
	}
	for _, kind := range t.cfg.Variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		model, err := t.fit(ctx, kind, x, y, len(classes))
		if err != nil {
			return nil, fmt.Errorf("train %s: %w", kind, err)
		}
		elapsed := time.Since(start)
		if t.metrics != nil {
			t.metrics.MLTrainingDurationObserve(string(kind), elapsed.Seconds())
		}

		result.Artifacts[kind] = &Artifact{
			Kind:         kind,
			Classes:      classes,
			TrainedAt:    time.Now().UTC(),
			TrainingRows: train.Len(),
			Transform:    transform,
			Model:        model,
		}
		result.Durations[kind] = elapsed

		log.Info().
			Str("variant", string(kind)).
			Dur("duration", elapsed).
			Int("features", transform.Width()).
			Msg("Model trained")
	}
	return result, nil
}

func (t *Trainer) fit(ctx context.Context, kind Kind, x [][]float64, y []int, k int) (Classifier, error) {
	switch kind {
	case KindLogistic:
		return FitLogistic(x, y, k, t.cfg.Linear)
	case KindForest:
		cfg := t.cfg.Forest
		if cfg.Seed == 0 {
			cfg.Seed = t.cfg.Seed
		}
		return FitForest(ctx, x, y, k, cfg)
	default:
		return nil, fmt.Errorf("unknown model variant %q", kind)
	}
}

// encodeLabels maps labels to class indices following the enum order of the
// classes present.
func encodeLabels(labels []label.Label) ([]label.Label, []int) {
	present := make(map[label.Label]bool)
	for _, l := range labels {
		present[l] = true
	}
	classes := make([]label.Label, 0, len(present))
	for _, l := range label.Retained {
		if present[l] {
			classes = append(classes, l)
		}
	}
	index := make(map[label.Label]int, len(classes))
	for i, l := range classes {
		index[l] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y
}
