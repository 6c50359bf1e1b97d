package main

import (
	"fmt"

	"hype-classifier/internal/evaluate"

	"github.com/spf13/cobra"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the stored evaluation reports and the latest training run",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		variants, err := store.ListReports()
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		if len(variants) == 0 {
			fmt.Fprintln(out, "No evaluation reports stored; run `hype train` first.")
			return nil
		}

		reports := make([]evaluate.Report, 0, len(variants))
		for _, v := range variants {
			var r evaluate.Report
			if err := store.GetReport(v, &r); err != nil {
				return err
			}
			reports = append(reports, r)
		}

		var run RunSummary
		found, err := store.LatestRun(&run)
		if err != nil {
			return fmt.Errorf("read latest run: %w", err)
		}

		if reportJSON {
			doc := map[string]any{"reports": reports}
			if found {
				doc["latest_run"] = run
			}
			return printJSON(out, doc)
		}

		for _, r := range reports {
			fmt.Fprintln(out, r)
		}
		if found {
			fmt.Fprintf(out, "Latest run: %s, %d rows (%d train / %d holdout), best %s, %.1fs\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Rows, run.TrainRows, run.HoldoutRows, run.Best, run.Seconds)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the reports as JSON")
	rootCmd.AddCommand(reportCmd)
}
