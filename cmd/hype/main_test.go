package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/label"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"label", "train", "predict", "serve", "report", "sample"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "hype", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("artifact"))
}

func TestTrainCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "labeled", "export", "trees", "workers"} {
		assert.NotNil(t, trainCmd.Flags().Lookup(name), "train should have --%s flag", name)
	}
}

func TestPredictCommand_Flags(t *testing.T) {
	for _, name := range []string{"record", "name", "brand", "category", "artifact", "variant", "remote"} {
		assert.NotNil(t, predictCmd.Flags().Lookup(name), "predict should have --%s flag", name)
	}
}

func TestStringFlagOr(t *testing.T) {
	assert.Equal(t, "flag", stringFlagOr("flag", "default"))
	assert.Equal(t, "default", stringFlagOr("", "default"))
}

// writeCorpus writes a small raw corpus in which brand_name decides the
// outcome: Glow is worth it, Buzz overrated, Quiet underrated and Filler
// neutral.
func writeCorpus(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("product_name,brand_name,primary_category,price_usd,new,rating,reviews,loves_count\n")
	for i := range 96 {
		brand, rating, loves := "Filler", 4.0, 5000.0
		switch i % 8 {
		case 0:
			brand, rating, loves = "Glow", 4.9, 90000+float64(i)
		case 1:
			brand, rating, loves = "Buzz", 3.2, 80000+float64(i)
		case 2, 3:
			brand, rating, loves = "Quiet", 4.9, 100+float64(i)
		}
		fmt.Fprintf(&b, "Product %d,%s,Skincare,%d.00,%d,%.1f,%d,%.0f\n", i, brand, 10+i%7, i%2, rating, 50+i, loves)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "hype %s", strings.Join(args, " "))
	return out.String()
}

func TestPipeline_LabelTrainReportPredict(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "products.csv")
	labeled := filepath.Join(dir, "labeled.csv")
	exported := filepath.Join(dir, "model.json.gz")
	writeCorpus(t, raw)

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATA_FILE", raw)
	t.Setenv("LABELED_FILE", labeled)
	t.Setenv("DATA_PATH", filepath.Join(dir, "data"))
	t.Setenv("REPORT_DIR", filepath.Join(dir, "reports"))
	t.Setenv("IMPORTANCE_REPEATS", "2")
	t.Setenv("LOG_LEVEL", "error")

	out := execute(t, "label")
	assert.Contains(t, out, "Thresholds:")
	_, err := os.Stat(labeled)
	require.NoError(t, err)

	out = execute(t, "train", "--labeled", "--trees", "25", "--workers", "2", "--export", exported)
	assert.Contains(t, out, "logistic_regression")
	assert.Contains(t, out, "random_forest")
	assert.Contains(t, out, "Best variant by macro F1")
	_, err = os.Stat(exported)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "reports", "evaluation_summary.txt"))
	assert.NoError(t, err)

	out = execute(t, "report", "--json")
	var doc struct {
		Reports   []json.RawMessage `json:"reports"`
		LatestRun RunSummary        `json:"latest_run"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Reports, 2)
	assert.Positive(t, doc.LatestRun.Rows)
	assert.Equal(t, doc.LatestRun.Rows, doc.LatestRun.TrainRows+doc.LatestRun.HoldoutRows)
	assert.NotEmpty(t, doc.LatestRun.Best)

	out = execute(t, "predict", "--artifact", exported, "--record", `{"brand_name":"Quiet","primary_category":"Skincare","price_usd":12}`)
	var pred struct {
		Label      string         `json:"label"`
		Confidence float64        `json:"confidence"`
		Features   map[string]any `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Equal(t, "underrated", pred.Label)
	assert.Greater(t, pred.Confidence, 0.0)
	assert.Equal(t, "Quiet", pred.Features["brand_name"])
}

func TestSampleCommand_FeedsLabeling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.csv")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_LEVEL", "error")

	out := execute(t, "sample", "--rows", "500", "--seed", "9", "--output", path)
	assert.Contains(t, out, "Generated 500 products")

	raw, err := dataset.ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 500, raw.Len())

	ds, err := label.Build(raw, label.DefaultConfig())
	require.NoError(t, err)
	for _, l := range label.Retained {
		assert.Positive(t, ds.Distribution.Counts[l], "class %s should be populated", l)
	}
}
