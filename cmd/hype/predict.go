package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"hype-classifier/internal/catalog"
	"hype-classifier/internal/client"
	"hype-classifier/internal/dataset"
	"hype-classifier/internal/metrics"
	"hype-classifier/internal/ml"
	"hype-classifier/internal/server"

	"github.com/spf13/cobra"
)

var (
	predictRecord   string
	predictName     string
	predictBrand    string
	predictCategory string
	predictArtifact string
	predictVariant  string
	predictRemote   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the hype label of one product",
	Long: "Predicts from a raw JSON record (--record) or a catalog product selected by name and filters. " +
		"Uses the stored artifact, an exported artifact file (--artifact) or a running server (--remote).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (predictRecord == "") == (predictName == "" && predictBrand == "" && predictCategory == "") {
			return errors.New("pass either --record or a catalog selection (--name, --brand, --category)")
		}
		filter := catalog.Filter{Brand: predictBrand, Category: predictCategory}

		var values map[string]any
		if predictRecord != "" {
			if err := json.Unmarshal([]byte(predictRecord), &values); err != nil {
				return fmt.Errorf("parse --record: %w", err)
			}
		}

		if predictRemote {
			c := client.New(settings.APIURL, settings.Timeout)
			if values != nil {
				resp, err := c.Predict(cmd.Context(), values)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}
			resp, err := c.ProductPrediction(cmd.Context(), filter, predictName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}

		predictor, err := localPredictor()
		if err != nil {
			return err
		}

		if values != nil {
			pred, err := predictor.PredictOne(dataset.RecordFromValues(values))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), server.NewPredictionResponse(pred))
		}

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		record, err := cat.Select(filter, predictName)
		if err != nil {
			return err
		}
		pred, err := predictor.PredictOne(record)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), server.ProductPredictionResponse{
			Card:       catalog.Card(record),
			Price:      catalog.PriceText(record),
			Category:   catalog.CategoryText(record),
			Prediction: server.NewPredictionResponse(pred),
		})
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictRecord, "record", "", `raw product record as JSON, e.g. '{"brand_name":"Dior","price_usd":42}'`)
	predictCmd.Flags().StringVar(&predictName, "name", "", "catalog product name (first match wins)")
	predictCmd.Flags().StringVar(&predictBrand, "brand", "", "catalog brand filter")
	predictCmd.Flags().StringVar(&predictCategory, "category", "", "catalog primary category filter")
	predictCmd.Flags().StringVar(&predictArtifact, "artifact", "", "exported artifact file instead of the model store")
	predictCmd.Flags().StringVar(&predictVariant, "variant", "", "model variant to load from the store (default from config)")
	predictCmd.Flags().BoolVar(&predictRemote, "remote", false, "ask the prediction server at the configured API URL")
	rootCmd.AddCommand(predictCmd)
}

func localPredictor() (*ml.Predictor, error) {
	mw := metrics.NewWrapper(processMetrics())
	if predictArtifact != "" {
		return ml.LoadPredictorFile(predictArtifact, mw)
	}

	variant := settings.ServeVariant
	if predictVariant != "" {
		kind, err := ml.ParseKind(predictVariant)
		if err != nil {
			return nil, err
		}
		variant = kind
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return ml.LoadPredictor(store, variant, mw)
}

// loadCatalog indexes the labeled corpus for browsing.
func loadCatalog() (*catalog.Catalog, error) {
	t, err := dataset.ReadCSV(settings.LabeledFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return catalog.New(t), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
