package main

import (
	"os/signal"
	"syscall"

	"hype-classifier/internal/metrics"
	"hype-classifier/internal/ml"
	"hype-classifier/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveArtifact string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions and catalog browsing over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if settings.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		m := processMetrics()
		mw := metrics.NewWrapper(m)

		var (
			predictor *ml.Predictor
			err       error
		)
		if serveArtifact != "" {
			predictor, err = ml.LoadPredictorFile(serveArtifact, mw)
		} else {
			store, openErr := openStore()
			if openErr != nil {
				log.Fatal().Err(openErr).Msg("model store unavailable")
			}
			predictor, err = ml.LoadPredictor(store, settings.ServeVariant, mw)
			store.Close()
		}
		if err != nil {
			log.Fatal().Err(err).Str("variant", string(settings.ServeVariant)).Msg("failed to load model artifact")
		}

		opts := []server.Option{
			server.WithMetrics(mw),
			server.WithHandler("/metrics", promhttp.Handler()),
		}
		if cat, err := loadCatalog(); err != nil {
			log.Warn().Err(err).Msg("catalog unavailable, product routes disabled")
		} else {
			opts = append(opts, server.WithCatalog(cat))
			log.Info().Int("products", cat.Len()).Msg("Catalog loaded")
		}

		port := servePort
		if port == 0 {
			port = settings.Server.Port
		}
		srv, err := server.New(server.Config{
			Port:           port,
			RateLimit:      settings.Server.RateLimit,
			RateBurst:      settings.Server.RateBurst,
			RequestTimeout: settings.Server.RequestTimeout,
			CORSOrigins:    settings.Server.CORSOrigins,
		}, predictor, opts...)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveArtifact, "artifact", "", "serve an exported artifact file instead of the model store")
	rootCmd.AddCommand(serveCmd)
}
