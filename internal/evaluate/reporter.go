package evaluate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hype-classifier/internal/label"

	"github.com/rs/zerolog/log"
)

// Summary bundles everything written for one training run.
type Summary struct {
	Thresholds   label.Thresholds   `json:"thresholds"`
	Distribution label.Distribution `json:"distribution"`
	Reports      []Report           `json:"reports"`
	Best         string             `json:"best_variant"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// Reporter writes evaluation reports to a directory
type Reporter struct {
	summary    Summary
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(summary Summary, outputPath string) *Reporter {
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now().UTC()
	}
	if best, ok := Best(summary.Reports); ok && summary.Best == "" {
		summary.Best = string(best.Variant)
	}
	return &Reporter{summary: summary, outputPath: outputPath}
}

// GenerateReport writes the text summary, the JSON document and the per-class
// metrics CSV.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateJSONReport(); err != nil {
		return err
	}
	return r.generateMetricsReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "evaluation_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "HYPE CLASSIFIER EVALUATION\n")
	fmt.Fprintf(file, "==========================\n\n")
	fmt.Fprintf(file, "Generated: %s\n\n", r.summary.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(file, "LABEL THRESHOLDS\n")
	fmt.Fprintf(file, "----------------\n")
	fmt.Fprintf(file, "%s\n\n", r.summary.Thresholds)
	fmt.Fprintf(file, "%s\n", r.summary.Distribution)

	for _, rep := range r.summary.Reports {
		fmt.Fprintf(file, "%s\n", rep)
	}
	if r.summary.Best != "" {
		fmt.Fprintf(file, "Best variant by macro F1: %s\n", r.summary.Best)
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "evaluation.json")
	data, err := json.MarshalIndent(r.summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generateMetricsReport() error {
	metricsPath := filepath.Join(r.outputPath, "class_metrics.csv")
	file, err := os.Create(metricsPath)
	if err != nil {
		return fmt.Errorf("failed to create metrics report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"variant", "label", "precision", "recall", "f1", "support"}); err != nil {
		return err
	}
	for _, rep := range r.summary.Reports {
		for _, cs := range rep.PerClass {
			record := []string{
				string(rep.Variant),
				cs.Label.String(),
				strconv.FormatFloat(cs.Precision, 'f', 4, 64),
				strconv.FormatFloat(cs.Recall, 'f', 4, 64),
				strconv.FormatFloat(cs.F1, 'f', 4, 64),
				strconv.Itoa(cs.Support),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write metrics report: %w", err)
	}

	log.Info().Str("file", metricsPath).Msg("Metrics report generated")
	return nil
}
