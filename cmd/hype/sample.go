package main

import (
	"fmt"

	"hype-classifier/internal/dataset"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	sampleRows   int
	sampleSeed   uint64
	sampleOutput string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic product corpus for trying the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleRows < 1 {
			return fmt.Errorf("--rows must be positive, got %d", sampleRows)
		}
		output := stringFlagOr(sampleOutput, settings.DataFile)

		t := dataset.SampleCorpus(sampleRows, sampleSeed)
		if err := dataset.WriteCSV(output, t); err != nil {
			return fmt.Errorf("write sample corpus: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %d products in %s\n", t.Len(), output)
		log.Info().Str("path", output).Int("rows", t.Len()).Uint64("seed", sampleSeed).Msg("Sample corpus written")
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVar(&sampleRows, "rows", 2000, "number of products to generate")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 42, "generator seed")
	sampleCmd.Flags().StringVar(&sampleOutput, "output", "", "destination CSV (default from config)")
	rootCmd.AddCommand(sampleCmd)
}
