// Package features turns raw product records into the numeric feature matrix
// consumed by the classifiers. The feature set is declared up front in a
// Schema and validated once; fitting learns imputation, scaling and category
// vocabularies from the training partition only.
package features

import (
	"errors"
	"fmt"

	"hype-classifier/internal/dataset"
)

var (
	// ErrInvalidSchema is returned when a declared schema cannot be used.
	ErrInvalidSchema = errors.New("invalid feature schema")
	// ErrEmptyTrainingSet is returned when fitting on zero rows.
	ErrEmptyTrainingSet = errors.New("empty training set")
	// ErrMissingColumn is returned when a required feature column is absent.
	ErrMissingColumn = errors.New("missing feature column")
)

// Column declares one raw feature column. Optional columns may be absent from
// the training corpus; they are then dropped from the fitted transform.
type Column struct {
	Name     string `yaml:"name" json:"name"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Schema is the declared feature contract.
type Schema struct {
	Numeric     []Column `yaml:"numeric" json:"numeric"`
	Categorical []Column `yaml:"categorical" json:"categorical"`
}

// DefaultSchema covers the commercial numerics, product flags and the
// brand/category taxonomy of the product corpus.
func DefaultSchema() Schema {
	return Schema{
		Numeric: []Column{
			{Name: dataset.ColPrice},
			{Name: dataset.ColValuePrice, Optional: true},
			{Name: dataset.ColSalePrice, Optional: true},
			{Name: dataset.ColExclusive, Optional: true},
			{Name: dataset.ColLimitedEdition, Optional: true},
			{Name: dataset.ColNew, Optional: true},
			{Name: dataset.ColOnlineOnly, Optional: true},
			{Name: dataset.ColOutOfStock, Optional: true},
		},
		Categorical: []Column{
			{Name: dataset.ColBrandName},
			{Name: dataset.ColPrimaryCategory},
			{Name: dataset.ColSecondaryCategory, Optional: true},
			{Name: dataset.ColTertiaryCategory, Optional: true},
		},
	}
}

// Columns returns every declared column name, numerics first.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	for _, c := range s.Numeric {
		out = append(out, c.Name)
	}
	for _, c := range s.Categorical {
		out = append(out, c.Name)
	}
	return out
}

// Validate checks the schema against the forbidden (outcome and label) columns.
func (s Schema) Validate(forbidden ...string) error {
	if len(s.Numeric)+len(s.Categorical) == 0 {
		return fmt.Errorf("%w: no feature columns declared", ErrInvalidSchema)
	}
	banned := make(map[string]bool, len(forbidden))
	for _, f := range forbidden {
		banned[f] = true
	}
	seen := make(map[string]bool)
	for _, name := range s.Columns() {
		if name == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidSchema)
		}
		if seen[name] {
			return fmt.Errorf("%w: column %q declared twice", ErrInvalidSchema, name)
		}
		if banned[name] {
			return fmt.Errorf("%w: column %q is an outcome or label column", ErrInvalidSchema, name)
		}
		seen[name] = true
	}
	return nil
}
