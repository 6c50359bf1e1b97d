package label

import (
	"errors"
	"fmt"
	"slices"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/stats"
)

// ErrNoCompleteRows is returned when no row carries all outcome signals.
var ErrNoCompleteRows = errors.New("no rows with complete outcome signals")

// Columns names the outcome signal columns of the raw corpus.
type Columns struct {
	Rating      string `yaml:"rating"`
	ReviewCount string `yaml:"reviewCount"`
	Popularity  string `yaml:"popularity"`
	Label       string `yaml:"label"`
}

// DefaultColumns matches the product_info corpus.
func DefaultColumns() Columns {
	return Columns{
		Rating:      dataset.ColRating,
		ReviewCount: dataset.ColReviews,
		Popularity:  dataset.ColLoves,
		Label:       dataset.ColHypeLabel,
	}
}

// Outcome returns the outcome signal columns; these never feed the model.
func (c Columns) Outcome() []string {
	return []string{c.Rating, c.ReviewCount, c.Popularity}
}

// Config controls threshold computation.
type Config struct {
	Columns      Columns `yaml:"columns"`
	HighQuantile float64 `yaml:"highQuantile"`
	LowQuantile  float64 `yaml:"lowQuantile"`
}

// DefaultConfig uses the 75th/25th percentiles.
func DefaultConfig() Config {
	return Config{
		Columns:      DefaultColumns(),
		HighQuantile: 0.75,
		LowQuantile:  0.25,
	}
}

// Validate checks the quantiles and column names.
func (c Config) Validate() error {
	if c.Columns.Rating == "" || c.Columns.ReviewCount == "" || c.Columns.Popularity == "" || c.Columns.Label == "" {
		return fmt.Errorf("label columns must all be named, got %+v", c.Columns)
	}
	if c.LowQuantile <= 0 || c.LowQuantile >= 1 || c.HighQuantile <= 0 || c.HighQuantile >= 1 {
		return fmt.Errorf("quantiles must be within (0, 1), got low=%v high=%v", c.LowQuantile, c.HighQuantile)
	}
	if c.LowQuantile > c.HighQuantile {
		return fmt.Errorf("low quantile %v exceeds high quantile %v", c.LowQuantile, c.HighQuantile)
	}
	return nil
}

// Signals are the outcome values of one product.
type Signals struct {
	Rating      float64
	ReviewCount float64
	Popularity  float64
}

// ExtractSignals reads the outcome signals of r. ok is false when any of
// them is missing or unparseable.
func ExtractSignals(r dataset.Record, cols Columns) (Signals, bool) {
	rating, ok := r.Float(cols.Rating)
	if !ok {
		return Signals{}, false
	}
	reviews, ok := r.Float(cols.ReviewCount)
	if !ok {
		return Signals{}, false
	}
	pop, ok := r.Float(cols.Popularity)
	if !ok {
		return Signals{}, false
	}
	return Signals{Rating: rating, ReviewCount: reviews, Popularity: pop}, true
}

// Thresholds are the corpus-wide cut points used to assign labels.
// The value is immutable; compute it with Fit and pass it explicitly.
type Thresholds struct {
	RatingHigh     float64 `json:"rating_high"`
	PopularityHigh float64 `json:"popularity_high"`
	PopularityLow  float64 `json:"popularity_low"`
}

// Fit computes thresholds from the population of complete signals.
func Fit(signals []Signals, cfg Config) (Thresholds, error) {
	if err := cfg.Validate(); err != nil {
		return Thresholds{}, err
	}
	if len(signals) == 0 {
		return Thresholds{}, ErrNoCompleteRows
	}

	ratings := make([]float64, len(signals))
	pops := make([]float64, len(signals))
	for i, s := range signals {
		ratings[i] = s.Rating
		pops[i] = s.Popularity
	}
	slices.Sort(ratings)
	slices.Sort(pops)

	return Thresholds{
		RatingHigh:     stats.Quantile(ratings, cfg.HighQuantile),
		PopularityHigh: stats.Quantile(pops, cfg.HighQuantile),
		PopularityLow:  stats.Quantile(pops, cfg.LowQuantile),
	}, nil
}

// Assign labels one product. Branches are evaluated in order and the first
// match wins; when PopularityLow equals PopularityHigh a highly rated product
// at that popularity is WorthIt.
func (t Thresholds) Assign(rating, popularity float64) Label {
	switch {
	case rating >= t.RatingHigh && popularity >= t.PopularityHigh:
		return WorthIt
	case rating < t.RatingHigh && popularity >= t.PopularityHigh:
		return Overrated
	case rating >= t.RatingHigh && popularity <= t.PopularityLow:
		return Underrated
	default:
		return Neutral
	}
}

func (t Thresholds) String() string {
	return fmt.Sprintf("rating_high=%.4g popularity_high=%.6g popularity_low=%.6g",
		t.RatingHigh, t.PopularityHigh, t.PopularityLow)
}
