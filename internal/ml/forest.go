package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ForestConfig configures the random forest.
type ForestConfig struct {
	Trees          int    `yaml:"trees" json:"trees"`
	MaxDepth       int    `yaml:"maxDepth" json:"max_depth"`
	MinSamplesLeaf int    `yaml:"minSamplesLeaf" json:"min_samples_leaf"`
	Workers        int    `yaml:"workers" json:"workers"`
	Seed           uint64 `yaml:"seed" json:"seed"`
	// BalancedSubsample reweights every bootstrap sample so each class present
	// in it carries equal total weight.
	BalancedSubsample bool `yaml:"balancedSubsample" json:"balanced_subsample"`
}

// DefaultForestConfig returns 400 unbounded trees with balanced subsamples.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:             400,
		MinSamplesLeaf:    1,
		Seed:              42,
		BalancedSubsample: true,
	}
}

// Validate checks the configuration.
func (c ForestConfig) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("forest trees must be positive, got %d", c.Trees)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("forest maxDepth must not be negative, got %d", c.MaxDepth)
	}
	if c.MinSamplesLeaf <= 0 {
		return fmt.Errorf("forest minSamplesLeaf must be positive, got %d", c.MinSamplesLeaf)
	}
	if c.Workers < 0 {
		return fmt.Errorf("forest workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// RandomForest averages the leaf distributions of bootstrapped trees.
type RandomForest struct {
	Trees    []*Tree `json:"trees"`
	Classes  int     `json:"classes"`
	Features int     `json:"features"`
}

// Kind implements Classifier.
func (f *RandomForest) Kind() Kind { return KindForest }

// NumClasses implements Classifier.
func (f *RandomForest) NumClasses() int { return f.Classes }

// NumFeatures implements Classifier.
func (f *RandomForest) NumFeatures() int { return f.Features }

// PredictProba implements Classifier. Trees are summed in index order.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.Classes)
	for _, t := range f.Trees {
		for c, p := range t.leaf(x) {
			out[c] += p
		}
	}
	n := float64(len(f.Trees))
	for c := range out {
		out[c] /= n
	}
	return out
}

// UnmarshalJSON checks every decoded tree.
func (f *RandomForest) UnmarshalJSON(data []byte) error {
	type plain RandomForest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Trees) == 0 || p.Classes < 2 || p.Features <= 0 {
		return fmt.Errorf("random forest: %d trees, %d classes, %d features", len(p.Trees), p.Classes, p.Features)
	}
	for i, t := range p.Trees {
		if t == nil {
			return fmt.Errorf("random forest: tree %d is null", i)
		}
		if err := t.validate(p.Features, p.Classes); err != nil {
			return fmt.Errorf("random forest: tree %d: %w", i, err)
		}
	}
	*f = RandomForest(p)
	return nil
}

// FitForest grows cfg.Trees trees concurrently. Tree i draws its bootstrap
// sample and feature candidates from a PCG stream seeded by (cfg.Seed, i), so
// the result does not depend on scheduling or the worker count.
func FitForest(ctx context.Context, x [][]float64, y []int, numClasses int, cfg ForestConfig) (*RandomForest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("random forest: %d rows for %d labels", len(x), len(y))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("random forest needs at least 2 classes, got %d", numClasses)
	}

	d := len(x[0])
	params := treeParams{
		maxFeatures:    max(1, int(math.Sqrt(float64(d)))),
		maxDepth:       cfg.MaxDepth,
		minSamplesLeaf: cfg.MinSamplesLeaf,
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			w := bootstrapWeights(y, numClasses, rng, cfg.BalancedSubsample)
			trees[i] = growTree(x, y, w, numClasses, params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("random forest fitting aborted: %w", err)
	}

	nodes := 0
	for _, t := range trees {
		nodes += len(t.Nodes)
	}
	log.Debug().
		Int("trees", len(trees)).
		Int("nodes", nodes).
		Int("max_features", params.maxFeatures).
		Int("workers", workers).
		Msg("Random forest fitted")

	return &RandomForest{Trees: trees, Classes: numClasses, Features: d}, nil
}

// bootstrapWeights draws n rows with replacement and returns per-row weights:
// the draw multiplicity, scaled by the balanced class weight of the bootstrap
// sample when balanced is set.
func bootstrapWeights(y []int, numClasses int, rng *rand.Rand, balanced bool) []float64 {
	n := len(y)
	mult := make([]float64, n)
	drawn := make([]int, 0, n)
	for range n {
		i := rng.IntN(n)
		mult[i]++
		drawn = append(drawn, y[i])
	}
	if !balanced {
		return mult
	}
	classW := ClassWeights(drawn, numClasses)
	for i := range mult {
		mult[i] *= classW[y[i]]
	}
	return mult
}
