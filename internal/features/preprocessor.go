package features

import (
	"encoding/json"
	"fmt"
	"slices"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/stats"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Preprocessor holds a validated schema and fits transforms from it.
type Preprocessor struct {
	schema    Schema
	forbidden []string
}

// NewPreprocessor validates schema once. Columns listed in forbidden (outcome
// signals and the label) must not appear in it.
func NewPreprocessor(schema Schema, forbidden ...string) (*Preprocessor, error) {
	if err := schema.Validate(forbidden...); err != nil {
		return nil, err
	}
	return &Preprocessor{schema: schema, forbidden: slices.Clone(forbidden)}, nil
}

// Schema returns the declared schema.
func (p *Preprocessor) Schema() Schema {
	return p.schema
}

type numericStat struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

type categoricalStat struct {
	Name       string   `json:"name"`
	Fill       string   `json:"fill"`
	Vocabulary []string `json:"vocabulary"`

	index map[string]int
}

// Transform is a fitted preprocessor. It is immutable after Fit or
// UnmarshalJSON and safe for concurrent use.
type Transform struct {
	numeric     []numericStat
	categorical []categoricalStat
	dropped     []string
	names       []string
	width       int
}

// Fit learns imputation values, scaling and vocabularies from t.
func (p *Preprocessor) Fit(t *dataset.Table) (*Transform, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTrainingSet
	}

	tr := &Transform{}
	for _, col := range p.schema.Numeric {
		if !t.HasColumn(col.Name) {
			if err := tr.drop(col); err != nil {
				return nil, err
			}
			continue
		}
		tr.numeric = append(tr.numeric, fitNumeric(col.Name, t))
	}
	for _, col := range p.schema.Categorical {
		if !t.HasColumn(col.Name) {
			if err := tr.drop(col); err != nil {
				return nil, err
			}
			continue
		}
		tr.categorical = append(tr.categorical, fitCategorical(col.Name, t))
	}
	if len(tr.numeric)+len(tr.categorical) == 0 {
		return nil, fmt.Errorf("%w: every declared column is absent", ErrMissingColumn)
	}
	tr.finish()

	log.Info().
		Int("rows", t.Len()).
		Int("numeric", len(tr.numeric)).
		Int("categorical", len(tr.categorical)).
		Int("width", tr.width).
		Strs("dropped", tr.dropped).
		Msg("Preprocessor fitted")
	return tr, nil
}

func (tr *Transform) drop(col Column) error {
	if !col.Optional {
		return fmt.Errorf("%w: %q", ErrMissingColumn, col.Name)
	}
	log.Warn().Str("column", col.Name).Msg("Optional feature column absent from training data, dropping it")
	tr.dropped = append(tr.dropped, col.Name)
	return nil
}

func fitNumeric(name string, t *dataset.Table) numericStat {
	observed := make([]float64, 0, t.Len())
	for _, r := range t.Records {
		if v, ok := r.Float(name); ok {
			observed = append(observed, v)
		}
	}

	ns := numericStat{Name: name, Scale: 1}
	if len(observed) == 0 {
		log.Warn().Str("column", name).Msg("Numeric feature column has no values, imputing 0")
		return ns
	}
	ns.Median = stats.Median(observed)

	imputed := make([]float64, t.Len())
	for i, r := range t.Records {
		if v, ok := r.Float(name); ok {
			imputed[i] = v
		} else {
			imputed[i] = ns.Median
		}
	}
	mean, std := stat.PopMeanStdDev(imputed, nil)
	ns.Mean = mean
	if std > 0 {
		ns.Scale = std
	}
	return ns
}

func fitCategorical(name string, t *dataset.Table) categoricalStat {
	counts := make(map[string]int)
	for _, r := range t.Records {
		if v, ok := r.Value(name); ok {
			counts[v]++
		}
	}

	cs := categoricalStat{Name: name, Vocabulary: make([]string, 0, len(counts))}
	best := -1
	for v, n := range counts {
		cs.Vocabulary = append(cs.Vocabulary, v)
		if n > best || (n == best && v < cs.Fill) {
			best, cs.Fill = n, v
		}
	}
	slices.Sort(cs.Vocabulary)
	if len(counts) == 0 {
		log.Warn().Str("column", name).Msg("Categorical feature column has no values, encoding as all zeros")
	}
	return cs
}

func (tr *Transform) finish() {
	tr.names = tr.names[:0]
	for _, ns := range tr.numeric {
		tr.names = append(tr.names, "num__"+ns.Name)
	}
	for i := range tr.categorical {
		cs := &tr.categorical[i]
		cs.index = make(map[string]int, len(cs.Vocabulary))
		for j, v := range cs.Vocabulary {
			cs.index[v] = j
			tr.names = append(tr.names, "cat__"+cs.Name+"_"+v)
		}
	}
	tr.width = len(tr.names)
}

// Apply encodes one record. Missing values are imputed and unseen categories
// produce an all-zero block. Outcome columns are never read.
func (tr *Transform) Apply(r dataset.Record) []float64 {
	out := make([]float64, tr.width)
	for i, ns := range tr.numeric {
		v, ok := r.Float(ns.Name)
		if !ok {
			v = ns.Median
		}
		out[i] = (v - ns.Mean) / ns.Scale
	}
	offset := len(tr.numeric)
	for _, cs := range tr.categorical {
		v, ok := r.Value(cs.Name)
		if !ok {
			v = cs.Fill
		}
		if j, known := cs.index[v]; known {
			out[offset+j] = 1
		}
		offset += len(cs.Vocabulary)
	}
	return out
}

// ApplyAll encodes every record.
func (tr *Transform) ApplyAll(records []dataset.Record) [][]float64 {
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = tr.Apply(r)
	}
	return out
}

// Width is the number of encoded features.
func (tr *Transform) Width() int { return tr.width }

// FeatureNames returns the encoded column names in output order.
func (tr *Transform) FeatureNames() []string { return slices.Clone(tr.names) }

// Columns returns the raw columns the transform reads, numerics first.
func (tr *Transform) Columns() []string {
	out := make([]string, 0, len(tr.numeric)+len(tr.categorical))
	for _, ns := range tr.numeric {
		out = append(out, ns.Name)
	}
	for _, cs := range tr.categorical {
		out = append(out, cs.Name)
	}
	return out
}

// Dropped lists optional columns that were absent at fit time.
func (tr *Transform) Dropped() []string { return slices.Clone(tr.dropped) }

// Echo returns the raw feature cells of r that the transform reads.
// Missing cells are reported as nil.
func (tr *Transform) Echo(r dataset.Record) map[string]any {
	out := make(map[string]any, len(tr.numeric)+len(tr.categorical))
	for _, ns := range tr.numeric {
		if v, ok := r.Float(ns.Name); ok {
			out[ns.Name] = v
		} else {
			out[ns.Name] = nil
		}
	}
	for _, cs := range tr.categorical {
		if v, ok := r.Value(cs.Name); ok {
			out[cs.Name] = v
		} else {
			out[cs.Name] = nil
		}
	}
	return out
}

type transformJSON struct {
	Numeric     []numericStat     `json:"numeric"`
	Categorical []categoricalStat `json:"categorical"`
	Dropped     []string          `json:"dropped,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (tr *Transform) MarshalJSON() ([]byte, error) {
	return json.Marshal(transformJSON{
		Numeric:     tr.numeric,
		Categorical: tr.categorical,
		Dropped:     tr.dropped,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (tr *Transform) UnmarshalJSON(data []byte) error {
	var raw transformJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode transform: %w", err)
	}
	if len(raw.Numeric)+len(raw.Categorical) == 0 {
		return fmt.Errorf("decode transform: no columns")
	}
	for _, ns := range raw.Numeric {
		if ns.Scale == 0 {
			return fmt.Errorf("decode transform: column %q has zero scale", ns.Name)
		}
	}
	*tr = Transform{numeric: raw.Numeric, categorical: raw.Categorical, dropped: raw.Dropped}
	tr.finish()
	return nil
}
