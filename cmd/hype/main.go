package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"hype-classifier/internal/cfg"
	"hype-classifier/internal/metrics"
	"hype-classifier/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	settings cfg.Settings
	logLevel string
	envFile  string
)

var rootCmd = &cobra.Command{
	Use:   "hype",
	Short: "Worth-the-hype product classifier",
	Long: "Labels beauty products as worth_it, underrated or overrated from their rating and popularity, " +
		"trains metadata-only classifiers to predict that label, and serves predictions over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is not an error; explicit --env-file is.
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file: %w", err)
		}

		s, err := cfg.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		settings = s

		level := settings.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		return setupLogger(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	return nil
}

var (
	metricsOnce sync.Once
	appMetrics  *metrics.Metrics
)

// processMetrics registers the collectors on the default registry once per
// process.
func processMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		appMetrics = metrics.New()
	})
	return appMetrics
}

func openStore() (*storage.Store, error) {
	if err := os.MkdirAll(settings.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}
	store, err := storage.New(settings.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
