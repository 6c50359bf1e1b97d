package evaluate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/features"
	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_KnownConfusion(t *testing.T) {
	w, u, o := label.WorthIt, label.Underrated, label.Overrated
	truth := []label.Label{w, w, w, w, u, u, o, o, o, o}
	pred := []label.Label{w, w, w, u, u, o, o, o, o, w}

	r, err := Score(truth, pred)
	require.NoError(t, err)

	assert.Equal(t, []label.Label{w, u, o}, r.Classes)
	assert.Equal(t, [][]int{
		{3, 1, 0},
		{0, 1, 1},
		{1, 0, 3},
	}, r.Confusion)
	assert.InDelta(t, 0.7, r.Accuracy, 1e-12)

	// worth_it: tp 3, predicted 4, support 4
	assert.InDelta(t, 0.75, r.PerClass[0].Precision, 1e-12)
	assert.InDelta(t, 0.75, r.PerClass[0].Recall, 1e-12)
	assert.InDelta(t, 0.75, r.PerClass[0].F1, 1e-12)
	// underrated: tp 1, predicted 2, support 2
	assert.InDelta(t, 0.5, r.PerClass[1].Precision, 1e-12)
	assert.InDelta(t, 0.5, r.PerClass[1].Recall, 1e-12)
	// overrated: tp 3, predicted 4, support 4
	assert.InDelta(t, 0.75, r.PerClass[2].F1, 1e-12)

	assert.InDelta(t, (0.75+0.5+0.75)/3, r.Macro.F1, 1e-12)
	assert.InDelta(t, (0.75*4+0.5*2+0.75*4)/10, r.Weighted.F1, 1e-12)
	assert.Equal(t, 10, r.Macro.Support)
}

func TestScore_ZeroDivision(t *testing.T) {
	truth := []label.Label{label.WorthIt, label.Underrated}
	pred := []label.Label{label.WorthIt, label.WorthIt}

	r, err := Score(truth, pred)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.PerClass[1].Precision)
	assert.Equal(t, 0.0, r.PerClass[1].F1)
}

func TestScore_Errors(t *testing.T) {
	_, err := Score(nil, nil)
	assert.Error(t, err)
	_, err = Score([]label.Label{label.WorthIt}, nil)
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)

	a := Report{Variant: ml.KindLogistic, Macro: Average{F1: 0.61}}
	b := Report{Variant: ml.KindForest, Macro: Average{F1: 0.74}}
	best, ok := Best([]Report{a, b})
	require.True(t, ok)
	assert.Equal(t, ml.KindForest, best.Variant)

	tie := Report{Variant: ml.KindForest, Macro: Average{F1: 0.61}}
	best, _ = Best([]Report{a, tie})
	assert.Equal(t, ml.KindLogistic, best.Variant)
}

func TestReportString(t *testing.T) {
	r, err := Score(
		[]label.Label{label.WorthIt, label.Overrated, label.Overrated},
		[]label.Label{label.WorthIt, label.Overrated, label.WorthIt},
	)
	require.NoError(t, err)
	r.Variant = ml.KindForest

	out := r.String()
	assert.Contains(t, out, "===== random_forest =====")
	assert.Contains(t, out, "precision")
	assert.Contains(t, out, "macro avg")
	assert.Contains(t, out, "0.667")
}

// trainedFixture trains a small forest where brand fully determines the label
// and price carries no signal.
func trainedFixture(t *testing.T) (*ml.Artifact, *label.Table) {
	t.Helper()
	brands := map[label.Label]string{label.WorthIt: "A", label.Underrated: "B", label.Overrated: "C"}
	ds := &label.Table{
		Table:       dataset.NewTable([]string{dataset.ColBrandName, dataset.ColPrice, dataset.ColHypeLabel}),
		LabelColumn: dataset.ColHypeLabel,
	}
	for i := 0; i < 150; i++ {
		l := label.Retained[i%3]
		ds.Records = append(ds.Records, dataset.Record{
			dataset.ColBrandName: brands[l],
			dataset.ColPrice:     strconv.Itoa(10 + i%7),
			dataset.ColHypeLabel: l.String(),
		})
		ds.Labels = append(ds.Labels, l)
	}

	pre, err := features.NewPreprocessor(features.Schema{
		Numeric:     []features.Column{{Name: dataset.ColPrice}},
		Categorical: []features.Column{{Name: dataset.ColBrandName}},
	}, dataset.ColHypeLabel)
	require.NoError(t, err)

	cfg := ml.DefaultTrainerConfig()
	cfg.Variants = []ml.Kind{ml.KindForest}
	cfg.Forest.Trees = 15
	trainer, err := ml.NewTrainer(cfg, pre, nil)
	require.NoError(t, err)
	res, err := trainer.Train(context.Background(), ds)
	require.NoError(t, err)
	return res.Artifacts[ml.KindForest], res.Holdout
}

func TestEvaluate(t *testing.T) {
	a, holdout := trainedFixture(t)
	r, err := Evaluate(a, holdout)
	require.NoError(t, err)

	assert.Equal(t, ml.KindForest, r.Variant)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.Equal(t, holdout.Len(), r.Macro.Support)
	assert.False(t, r.EvaluatedAt.IsZero())

	_, err = Evaluate(nil, holdout)
	assert.Error(t, err)
}

func TestPermutationImportance(t *testing.T) {
	a, holdout := trainedFixture(t)
	before := holdout.Records[0].Clone()

	imps, err := PermutationImportance(a, holdout, DefaultImportanceConfig())
	require.NoError(t, err)
	require.Len(t, imps, 2)

	assert.Equal(t, dataset.ColBrandName, imps[0].Column)
	assert.Greater(t, imps[0].Mean, 0.3)
	assert.Equal(t, []string{dataset.ColBrandName}, Top(imps, 1))
	assert.Equal(t, before, holdout.Records[0], "holdout rows must not be modified")

	again, err := PermutationImportance(a, holdout, DefaultImportanceConfig())
	require.NoError(t, err)
	assert.Equal(t, imps, again)

	_, err = PermutationImportance(a, holdout, ImportanceConfig{Repeats: 0})
	assert.Error(t, err)
}

func TestReporter_GenerateReport(t *testing.T) {
	r, err := Score(
		[]label.Label{label.WorthIt, label.Underrated, label.Overrated},
		[]label.Label{label.WorthIt, label.Underrated, label.WorthIt},
	)
	require.NoError(t, err)
	r.Variant = ml.KindLogistic

	dir := filepath.Join(t.TempDir(), "reports")
	rep := NewReporter(Summary{
		Thresholds: label.Thresholds{RatingHigh: 4.5, PopularityHigh: 1000, PopularityLow: 100},
		Distribution: label.Distribution{
			Counts: map[label.Label]int{label.WorthIt: 1, label.Underrated: 1, label.Overrated: 1},
			Input:  5,
		},
		Reports: []Report{r},
	}, dir)
	require.NoError(t, rep.GenerateReport())

	summary, err := os.ReadFile(filepath.Join(dir, "evaluation_summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "rating_high=4.5")
	assert.Contains(t, string(summary), "Best variant by macro F1: logistic_regression")

	raw, err := os.ReadFile(filepath.Join(dir, "evaluation.json"))
	require.NoError(t, err)
	var decoded Summary
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1, decoded.Distribution.Counts[label.Underrated])
	require.Len(t, decoded.Reports, 1)
	assert.Equal(t, r.Confusion, decoded.Reports[0].Confusion)

	csvData, err := os.ReadFile(filepath.Join(dir, "class_metrics.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "variant,label,precision,recall,f1,support", lines[0])
}
