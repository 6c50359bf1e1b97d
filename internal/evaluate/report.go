// Package evaluate scores trained artifacts against the held-out partition.
// Everything here is a pure function of its inputs.
package evaluate

import (
	"fmt"
	"strings"
	"time"

	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"
)

// ClassScore holds the per-class metrics.
type ClassScore struct {
	Label     label.Label `json:"label"`
	Precision float64     `json:"precision"`
	Recall    float64     `json:"recall"`
	F1        float64     `json:"f1"`
	Support   int         `json:"support"`
}

// Average is a macro or support-weighted average of the class scores.
type Average struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the evaluation of one variant on one partition. Confusion rows
// are true labels and columns predicted labels, both in Classes order.
type Report struct {
	Variant     ml.Kind           `json:"variant"`
	Classes     []label.Label     `json:"classes"`
	Confusion   [][]int           `json:"confusion"`
	PerClass    []ClassScore      `json:"per_class"`
	Accuracy    float64           `json:"accuracy"`
	Macro       Average           `json:"macro_avg"`
	Weighted    Average           `json:"weighted_avg"`
	Importance  []Importance      `json:"importance,omitempty"`
	Thresholds  *label.Thresholds `json:"thresholds,omitempty"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// Score compares predicted against truth. Classes are those present in either
// slice, in enum order. Zero-division metrics are reported as 0.
func Score(truth, predicted []label.Label) (Report, error) {
	if len(truth) != len(predicted) {
		return Report{}, fmt.Errorf("score: %d true labels for %d predictions", len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return Report{}, fmt.Errorf("score: no rows to evaluate")
	}

	present := make(map[label.Label]bool)
	for i := range truth {
		present[truth[i]] = true
		present[predicted[i]] = true
	}
	var classes []label.Label
	for _, l := range label.Retained {
		if present[l] {
			classes = append(classes, l)
		}
	}
	index := make(map[label.Label]int, len(classes))
	for i, l := range classes {
		index[l] = i
	}

	k := len(classes)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	correct := 0
	for i := range truth {
		confusion[index[truth[i]]][index[predicted[i]]]++
		if truth[i] == predicted[i] {
			correct++
		}
	}

	r := Report{
		Classes:   classes,
		Confusion: confusion,
		PerClass:  make([]ClassScore, k),
		Accuracy:  float64(correct) / float64(len(truth)),
	}
	total := len(truth)
	for c := range classes {
		tp := confusion[c][c]
		support, predictedN := 0, 0
		for j := 0; j < k; j++ {
			support += confusion[c][j]
			predictedN += confusion[j][c]
		}
		cs := ClassScore{
			Label:     classes[c],
			Precision: ratio(tp, predictedN),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if cs.Precision+cs.Recall > 0 {
			cs.F1 = 2 * cs.Precision * cs.Recall / (cs.Precision + cs.Recall)
		}
		r.PerClass[c] = cs

		r.Macro.Precision += cs.Precision / float64(k)
		r.Macro.Recall += cs.Recall / float64(k)
		r.Macro.F1 += cs.F1 / float64(k)
		w := float64(support) / float64(total)
		r.Weighted.Precision += cs.Precision * w
		r.Weighted.Recall += cs.Recall * w
		r.Weighted.F1 += cs.F1 * w
	}
	r.Macro.Support = total
	r.Weighted.Support = total
	return r, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Evaluate predicts every holdout row with a and scores the result.
func Evaluate(a *ml.Artifact, holdout *label.Table) (Report, error) {
	if a == nil {
		return Report{}, fmt.Errorf("evaluate: nil artifact")
	}
	predicted := make([]label.Label, holdout.Len())
	for i, rec := range holdout.Records {
		predicted[i] = a.Predict(rec)
	}
	r, err := Score(holdout.Labels, predicted)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate %s: %w", a.Kind, err)
	}
	r.Variant = a.Kind
	r.EvaluatedAt = time.Now().UTC()
	return r, nil
}

// Best returns the report with the highest macro F1. Ties keep the earlier
// report. ok is false for an empty slice.
func Best(reports []Report) (Report, bool) {
	if len(reports) == 0 {
		return Report{}, false
	}
	best := reports[0]
	for _, r := range reports[1:] {
		if r.Macro.F1 > best.Macro.F1 {
			best = r
		}
	}
	return best, true
}

// String renders the confusion matrix and a classification table with three
// decimals.
func (r Report) String() string {
	var b strings.Builder
	if r.Variant != "" {
		fmt.Fprintf(&b, "===== %s =====\n", r.Variant)
	}

	b.WriteString("Confusion matrix (rows: true, columns: predicted)\n")
	fmt.Fprintf(&b, "%12s", "")
	for _, l := range r.Classes {
		fmt.Fprintf(&b, " %11s", l)
	}
	b.WriteString("\n")
	for i, row := range r.Confusion {
		fmt.Fprintf(&b, "%12s", r.Classes[i])
		for _, v := range row {
			fmt.Fprintf(&b, " %11d", v)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, cs := range r.PerClass {
		fmt.Fprintf(&b, "%12s %10.3f %10.3f %10.3f %10d\n", cs.Label, cs.Precision, cs.Recall, cs.F1, cs.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.3f %10d\n", "accuracy", "", "", r.Accuracy, r.Macro.Support)
	fmt.Fprintf(&b, "%12s %10.3f %10.3f %10.3f %10d\n", "macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Macro.Support)
	fmt.Fprintf(&b, "%12s %10.3f %10.3f %10.3f %10d\n", "weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Weighted.Support)

	if len(r.Importance) > 0 {
		b.WriteString("\nPermutation importance (accuracy drop)\n")
		for _, imp := range r.Importance {
			fmt.Fprintf(&b, "%-24s %8.4f +/- %.4f\n", imp.Column, imp.Mean, imp.Std)
		}
	}
	return b.String()
}
