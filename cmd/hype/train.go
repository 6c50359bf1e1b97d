package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/evaluate"
	"hype-classifier/internal/features"
	"hype-classifier/internal/label"
	"hype-classifier/internal/metrics"
	"hype-classifier/internal/ml"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	trainInput   string
	trainLabeled bool
	trainExport  string
	trainTrees   int
	trainWorkers int
)

// RunSummary is the record stored for every training run.
type RunSummary struct {
	StartedAt    time.Time          `json:"started_at"`
	Input        string             `json:"input"`
	Rows         int                `json:"rows"`
	TrainRows    int                `json:"train_rows"`
	HoldoutRows  int                `json:"holdout_rows"`
	Thresholds   *label.Thresholds  `json:"thresholds,omitempty"`
	Distribution label.Distribution `json:"distribution"`
	Variants     map[string]float64 `json:"macro_f1"`
	Best         string             `json:"best_variant"`
	Seconds      float64            `json:"seconds"`
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train both classifier variants, evaluate them on the holdout and persist the artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		started := time.Now().UTC()

		trainerCfg := settings.Trainer
		if trainTrees > 0 {
			trainerCfg.Forest.Trees = trainTrees
		}
		if cmd.Flags().Changed("workers") {
			trainerCfg.Forest.Workers = trainWorkers
		}

		out := cmd.OutOrStdout()
		input, labeled, thresholds, dist, err := loadTrainingSet(out)
		if err != nil {
			return err
		}

		pre, err := features.NewPreprocessor(settings.Schema, append(settings.Label.Columns.Outcome(), labeled.LabelColumn)...)
		if err != nil {
			return err
		}
		m := processMetrics()
		trainer, err := ml.NewTrainer(trainerCfg, pre, metrics.NewWrapper(m))
		if err != nil {
			return err
		}
		result, err := trainer.Train(ctx, labeled)
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reports := make([]evaluate.Report, 0, len(trainerCfg.Variants))
		for _, kind := range trainerCfg.Variants {
			a := result.Artifacts[kind]
			report, err := evaluate.Evaluate(a, result.Holdout)
			if err != nil {
				return err
			}
			report.Thresholds = thresholds
			if settings.Importance.Enabled {
				imps, err := evaluate.PermutationImportance(a, result.Holdout, settings.Importance)
				if err != nil {
					return err
				}
				report.Importance = imps
			}
			m.RecordEvaluation(string(kind), report.Accuracy, report.Macro.F1)
			fmt.Fprintln(out, report)

			blob, err := ml.MarshalArtifact(a)
			if err != nil {
				return err
			}
			if err := store.PutArtifact(string(kind), blob); err != nil {
				return fmt.Errorf("store %s artifact: %w", kind, err)
			}
			if err := store.PutReport(string(kind), report); err != nil {
				return fmt.Errorf("store %s report: %w", kind, err)
			}
			reports = append(reports, report)
		}
		m.TrainingRuns.Inc()

		summary := evaluate.Summary{Distribution: dist, Reports: reports}
		if thresholds != nil {
			summary.Thresholds = *thresholds
		}
		if err := evaluate.NewReporter(summary, settings.ReportDir).GenerateReport(); err != nil {
			return fmt.Errorf("write reports: %w", err)
		}

		run := RunSummary{
			StartedAt:    started,
			Input:        input,
			Rows:         labeled.Len(),
			TrainRows:    result.Train.Len(),
			HoldoutRows:  result.Holdout.Len(),
			Thresholds:   thresholds,
			Distribution: dist,
			Variants:     make(map[string]float64, len(reports)),
			Seconds:      time.Since(started).Seconds(),
		}
		for _, r := range reports {
			run.Variants[string(r.Variant)] = r.Macro.F1
		}
		if best, ok := evaluate.Best(reports); ok {
			run.Best = string(best.Variant)
			fmt.Fprintf(out, "Best variant by macro F1: %s (%.3f)\n", best.Variant, best.Macro.F1)
		}
		if err := store.PutRun(started, run); err != nil {
			return fmt.Errorf("store run summary: %w", err)
		}

		if export := stringFlagOr(trainExport, settings.ExportPath); export != "" {
			a, ok := result.Artifacts[settings.ServeVariant]
			if !ok {
				return fmt.Errorf("export: serve variant %s was not trained", settings.ServeVariant)
			}
			if err := ml.WriteArtifactFile(export, a); err != nil {
				return err
			}
			log.Info().Str("path", export).Str("variant", string(a.Kind)).Msg("Artifact exported")
		}

		log.Info().
			Str("report_dir", settings.ReportDir).
			Str("data_path", settings.DataPath).
			Dur("elapsed", time.Since(started)).
			Msg("Training run complete")
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainInput, "input", "", "raw product CSV, or the labeled CSV with --labeled (default from config)")
	trainCmd.Flags().BoolVar(&trainLabeled, "labeled", false, "read an already labeled corpus instead of labeling the raw one")
	trainCmd.Flags().StringVar(&trainExport, "export", "", "also write the serve variant artifact to this file")
	trainCmd.Flags().IntVar(&trainTrees, "trees", 0, "override the number of forest trees")
	trainCmd.Flags().IntVar(&trainWorkers, "workers", 0, "parallel tree builders (0 uses all CPUs)")
	rootCmd.AddCommand(trainCmd)
}

// loadTrainingSet returns the labeled corpus. Thresholds are only known when
// the raw corpus is labeled in this run.
func loadTrainingSet(out io.Writer) (string, *label.Table, *label.Thresholds, label.Distribution, error) {
	if !trainLabeled {
		input := stringFlagOr(trainInput, settings.DataFile)
		ds, err := buildLabels(input)
		if err != nil {
			return "", nil, nil, label.Distribution{}, err
		}
		fmt.Fprint(out, ds.Distribution)
		th := ds.Thresholds
		return input, ds.Table, &th, ds.Distribution, nil
	}

	input := stringFlagOr(trainInput, settings.LabeledFile)
	raw, err := dataset.ReadCSV(input)
	if err != nil {
		return "", nil, nil, label.Distribution{}, fmt.Errorf("read labeled corpus: %w", err)
	}
	labeled, err := label.FromTable(raw, settings.Label.Columns.Label)
	if err != nil {
		return "", nil, nil, label.Distribution{}, err
	}
	dist := label.Distribution{Counts: labeled.Counts(), Input: labeled.Len()}
	return input, labeled, nil, dist, nil
}
