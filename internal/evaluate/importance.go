package evaluate

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"

	"gonum.org/v1/gonum/stat"
)

// ImportanceConfig configures permutation importance.
type ImportanceConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Repeats int    `yaml:"repeats" json:"repeats"`
	Seed    uint64 `yaml:"seed" json:"seed"`
}

// DefaultImportanceConfig shuffles each column five times.
func DefaultImportanceConfig() ImportanceConfig {
	return ImportanceConfig{Enabled: true, Repeats: 5, Seed: 42}
}

// Importance is the accuracy drop caused by shuffling one raw column.
type Importance struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// PermutationImportance measures, for each raw column the artifact reads, how
// much holdout accuracy drops when that column's values are shuffled across
// rows. Results are sorted by mean drop, largest first. The artifact and the
// holdout rows are not modified.
func PermutationImportance(a *ml.Artifact, holdout *label.Table, cfg ImportanceConfig) ([]Importance, error) {
	if cfg.Repeats <= 0 {
		return nil, fmt.Errorf("permutation importance needs at least one repeat, got %d", cfg.Repeats)
	}
	if holdout.Len() < 2 {
		return nil, fmt.Errorf("permutation importance needs at least 2 holdout rows, got %d", holdout.Len())
	}

	baseline := accuracy(a, holdout.Records, holdout.Labels)
	columns := a.Transform.Columns()
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(len(columns))))

	out := make([]Importance, 0, len(columns))
	for _, col := range columns {
		drops := make([]float64, cfg.Repeats)
		for rep := range cfg.Repeats {
			perm := rng.Perm(holdout.Len())
			shuffled := make([]dataset.Record, holdout.Len())
			for i, r := range holdout.Records {
				c := r.Clone()
				if v, ok := holdout.Records[perm[i]][col]; ok {
					c[col] = v
				} else {
					delete(c, col)
				}
				shuffled[i] = c
			}
			drops[rep] = baseline - accuracy(a, shuffled, holdout.Labels)
		}
		mean, std := stat.MeanStdDev(drops, nil)
		if cfg.Repeats == 1 {
			std = 0
		}
		out = append(out, Importance{Column: col, Mean: mean, Std: std})
	}

	slices.SortStableFunc(out, func(x, y Importance) int {
		switch {
		case x.Mean > y.Mean:
			return -1
		case x.Mean < y.Mean:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func accuracy(a *ml.Artifact, records []dataset.Record, truth []label.Label) float64 {
	hit := 0
	for i, r := range records {
		if a.Predict(r) == truth[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(records))
}

// Top returns the names of the n most important columns.
func Top(imps []Importance, n int) []string {
	n = min(n, len(imps))
	out := make([]string, n)
	for i := range n {
		out[i] = imps[i].Column
	}
	return out
}
