package main

import (
	"fmt"

	"hype-classifier/internal/dataset"
	"hype-classifier/internal/label"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	labelInput  string
	labelOutput string
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Derive hype labels from rating and popularity and write the labeled corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := stringFlagOr(labelInput, settings.DataFile)
		output := stringFlagOr(labelOutput, settings.LabeledFile)

		ds, err := buildLabels(input)
		if err != nil {
			return err
		}
		if err := dataset.WriteCSV(output, ds.Table.Table); err != nil {
			return fmt.Errorf("write labeled corpus: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Thresholds:", ds.Thresholds)
		fmt.Fprint(cmd.OutOrStdout(), ds.Distribution)
		log.Info().Str("path", output).Int("rows", ds.Table.Len()).Msg("Labeled corpus written")
		return nil
	},
}

func init() {
	labelCmd.Flags().StringVar(&labelInput, "input", "", "raw product CSV (default from config)")
	labelCmd.Flags().StringVar(&labelOutput, "output", "", "labeled CSV destination (default from config)")
	rootCmd.AddCommand(labelCmd)
}

// buildLabels reads the raw corpus at path and labels it.
func buildLabels(path string) (*label.Dataset, error) {
	raw, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	ds, err := label.Build(raw, settings.Label)
	if err != nil {
		return nil, fmt.Errorf("label corpus: %w", err)
	}
	processMetrics().RecordLabeling(ds.Distribution, ds.Thresholds)
	return ds, nil
}

func stringFlagOr(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}
