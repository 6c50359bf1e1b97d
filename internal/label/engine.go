package label

import (
	"fmt"
	"strings"

	"hype-classifier/internal/dataset"

	"github.com/rs/zerolog/log"
)

// Distribution summarizes the outcome of a labeling run.
type Distribution struct {
	Counts   map[Label]int `json:"counts"`
	Neutral  int           `json:"neutral_dropped"`
	Excluded int           `json:"excluded_missing"`
	Input    int           `json:"input_rows"`
}

// Retained returns the number of labeled rows kept.
func (d Distribution) Retained() int {
	n := 0
	for _, l := range Retained {
		n += d.Counts[l]
	}
	return n
}

// String renders the class distribution, most frequent first.
func (d Distribution) String() string {
	order := make([]Label, len(Retained))
	copy(order, Retained)
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && d.Counts[order[j]] > d.Counts[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	var b strings.Builder
	b.WriteString("Class distribution:\n")
	for _, l := range order {
		fmt.Fprintf(&b, "%-12s %d\n", l, d.Counts[l])
	}
	fmt.Fprintf(&b, "(input %d, excluded for missing signals %d, neutral dropped %d)\n",
		d.Input, d.Excluded, d.Neutral)
	return b.String()
}

// Dataset is the labeled corpus: rows that received a non-neutral label.
type Dataset struct {
	Table        *Table
	Thresholds   Thresholds
	Distribution Distribution
}

// Table pairs labeled records with their labels. The label column of each
// record is kept in sync with Labels.
type Table struct {
	*dataset.Table
	Labels      []Label
	LabelColumn string
}

// Build computes thresholds over every row with complete outcome signals,
// assigns labels and drops neutral rows. Rows missing a signal are excluded
// before thresholds are computed.
func Build(t *dataset.Table, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, col := range cfg.Columns.Outcome() {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("outcome column %q not present in corpus", col)
		}
	}

	complete := make([]int, 0, t.Len())
	signals := make([]Signals, 0, t.Len())
	for i, r := range t.Records {
		s, ok := ExtractSignals(r, cfg.Columns)
		if !ok {
			continue
		}
		complete = append(complete, i)
		signals = append(signals, s)
	}

	thresholds, err := Fit(signals, cfg)
	if err != nil {
		return nil, err
	}

	dist := Distribution{
		Counts:   make(map[Label]int, len(Retained)),
		Excluded: t.Len() - len(complete),
		Input:    t.Len(),
	}

	header := t.Header
	if !t.HasColumn(cfg.Columns.Label) {
		header = append(append([]string{}, t.Header...), cfg.Columns.Label)
	}
	out := &Table{Table: dataset.NewTable(header), LabelColumn: cfg.Columns.Label}

	for k, i := range complete {
		l := thresholds.Assign(signals[k].Rating, signals[k].Popularity)
		if l == Neutral {
			dist.Neutral++
			continue
		}
		rec := t.Records[i].Clone()
		rec[cfg.Columns.Label] = l.String()
		out.Records = append(out.Records, rec)
		out.Labels = append(out.Labels, l)
		dist.Counts[l]++
	}

	log.Info().
		Float64("rating_high", thresholds.RatingHigh).
		Float64("popularity_high", thresholds.PopularityHigh).
		Float64("popularity_low", thresholds.PopularityLow).
		Int("input", dist.Input).
		Int("excluded", dist.Excluded).
		Int("neutral", dist.Neutral).
		Int("retained", dist.Retained()).
		Msg("Labels assigned")

	return &Dataset{Table: out, Thresholds: thresholds, Distribution: dist}, nil
}

// FromTable reads an already labeled corpus. Every row must carry a retained
// label; anything else is a data error.
func FromTable(t *dataset.Table, labelColumn string) (*Table, error) {
	if !t.HasColumn(labelColumn) {
		return nil, fmt.Errorf("label column %q not present in labeled corpus", labelColumn)
	}
	out := &Table{Table: t, LabelColumn: labelColumn, Labels: make([]Label, t.Len())}
	for i, r := range t.Records {
		l, err := Parse(r[labelColumn])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if l == Neutral {
			return nil, fmt.Errorf("row %d: neutral rows must not appear in a labeled corpus", i+1)
		}
		out.Labels[i] = l
	}
	return out, nil
}

// Subset returns the labeled rows at idx.
func (t *Table) Subset(idx []int) *Table {
	sub := &Table{Table: t.Table.Subset(idx), LabelColumn: t.LabelColumn, Labels: make([]Label, len(idx))}
	for i, j := range idx {
		sub.Labels[i] = t.Labels[j]
	}
	return sub
}

// Counts returns the number of rows per label.
func (t *Table) Counts() map[Label]int {
	counts := make(map[Label]int, len(Retained))
	for _, l := range t.Labels {
		counts[l]++
	}
	return counts
}
