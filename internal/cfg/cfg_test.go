package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hype-classifier/internal/common"
	"hype-classifier/internal/ml"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults without environment",
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataFile != common.DefaultDataFile {
					t.Errorf("expected default DataFile, got %s", settings.DataFile)
				}
				if settings.ServeVariant != ml.KindForest {
					t.Errorf("expected default serve variant random_forest, got %s", settings.ServeVariant)
				}
				if settings.Trainer.TestFraction != 0.2 {
					t.Errorf("expected default test fraction 0.2, got %f", settings.Trainer.TestFraction)
				}
				if settings.Trainer.Forest.Trees != 400 {
					t.Errorf("expected default 400 trees, got %d", settings.Trainer.Forest.Trees)
				}
				if settings.Label.HighQuantile != 0.75 || settings.Label.LowQuantile != 0.25 {
					t.Errorf("expected default quantiles 0.75/0.25, got %f/%f", settings.Label.HighQuantile, settings.Label.LowQuantile)
				}
				if settings.Server.RequestTimeout != 10*time.Second {
					t.Errorf("expected default request timeout 10s, got %v", settings.Server.RequestTimeout)
				}
				if len(settings.Server.CORSOrigins) != 1 || settings.Server.CORSOrigins[0] != "*" {
					t.Errorf("expected default CORS origins [*], got %v", settings.Server.CORSOrigins)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"DATA_FILE":       "/tmp/products.csv",
				"SERVE_VARIANT":   "logistic_regression",
				"FOREST_TREES":    "50",
				"FOREST_WORKERS":  "2",
				"SPLIT_SEED":      "7",
				"LR_C":            "0.5",
				"SERVER_PORT":     "9090",
				"REQUEST_TIMEOUT": "30s",
				"CORS_ORIGINS":    "http://a.example, http://b.example",
				"LOG_LEVEL":       "debug",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataFile != "/tmp/products.csv" {
					t.Errorf("expected DataFile override, got %s", settings.DataFile)
				}
				if settings.ServeVariant != ml.KindLogistic {
					t.Errorf("expected logistic_regression, got %s", settings.ServeVariant)
				}
				if settings.Trainer.Forest.Trees != 50 || settings.Trainer.Forest.Workers != 2 {
					t.Errorf("expected 50 trees on 2 workers, got %d/%d", settings.Trainer.Forest.Trees, settings.Trainer.Forest.Workers)
				}
				if settings.Trainer.Seed != 7 || settings.Trainer.Forest.Seed != 7 || settings.Importance.Seed != 7 {
					t.Errorf("expected seed 7 everywhere, got %d/%d/%d", settings.Trainer.Seed, settings.Trainer.Forest.Seed, settings.Importance.Seed)
				}
				if settings.Trainer.Linear.C != 0.5 {
					t.Errorf("expected C 0.5, got %f", settings.Trainer.Linear.C)
				}
				if settings.Server.Port != 9090 {
					t.Errorf("expected port 9090, got %d", settings.Server.Port)
				}
				if settings.Server.RequestTimeout != 30*time.Second {
					t.Errorf("expected request timeout 30s, got %v", settings.Server.RequestTimeout)
				}
				if len(settings.Server.CORSOrigins) != 2 || settings.Server.CORSOrigins[1] != "http://b.example" {
					t.Errorf("expected two trimmed CORS origins, got %v", settings.Server.CORSOrigins)
				}
				if settings.LogLevel != "debug" {
					t.Errorf("expected log level debug, got %s", settings.LogLevel)
				}
			},
		},
		{
			name:    "unknown serve variant",
			envVars: map[string]string{"SERVE_VARIANT": "gradient_boosting"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			envVars: map[string]string{"SERVER_PORT": "80"},
			wantErr: true,
		},
		{
			name:    "inverted quantiles",
			envVars: map[string]string{"HIGH_QUANTILE": "0.2", "LOW_QUANTILE": "0.8"},
			wantErr: true,
		},
		{
			name:    "unparseable value keeps default",
			envVars: map[string]string{"FOREST_TREES": "many"},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Trainer.Forest.Trees != 400 {
					t.Errorf("expected default 400 trees, got %d", settings.Trainer.Forest.Trees)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
data:
  file: "corpus/products.csv"
  dataPath: "state"
labeling:
  highQuantile: 0.8
  lowQuantile: 0.2
training:
  testFraction: 0.25
  forest:
    trees: 100
server:
  port: 9000
  variant: logistic_regression
  requestTimeout: "5s"
  corsOrigins: ["http://localhost:3000"]
client:
  timeout: "2s"
system:
  logLevel: warn
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataFile != "corpus/products.csv" {
					t.Errorf("expected DataFile from YAML, got %s", settings.DataFile)
				}
				if settings.LabeledFile != common.DefaultLabeledFile {
					t.Errorf("expected default LabeledFile, got %s", settings.LabeledFile)
				}
				if settings.Label.HighQuantile != 0.8 || settings.Label.LowQuantile != 0.2 {
					t.Errorf("expected quantiles 0.8/0.2, got %f/%f", settings.Label.HighQuantile, settings.Label.LowQuantile)
				}
				if settings.Label.Columns.Rating != "rating" {
					t.Errorf("expected default rating column to survive, got %q", settings.Label.Columns.Rating)
				}
				if settings.Trainer.TestFraction != 0.25 {
					t.Errorf("expected test fraction 0.25, got %f", settings.Trainer.TestFraction)
				}
				if settings.Trainer.Forest.Trees != 100 || settings.Trainer.Forest.Seed != 42 {
					t.Errorf("expected 100 trees with default seed, got %d/%d", settings.Trainer.Forest.Trees, settings.Trainer.Forest.Seed)
				}
				if len(settings.Schema.Numeric) == 0 {
					t.Error("expected default feature schema")
				}
				if settings.ServeVariant != ml.KindLogistic {
					t.Errorf("expected logistic_regression, got %s", settings.ServeVariant)
				}
				if settings.Server.Port != 9000 || settings.Server.RequestTimeout != 5*time.Second {
					t.Errorf("expected port 9000 timeout 5s, got %d/%v", settings.Server.Port, settings.Server.RequestTimeout)
				}
				if settings.Timeout != 2*time.Second {
					t.Errorf("expected client timeout 2s, got %v", settings.Timeout)
				}
				if settings.LogLevel != "warn" {
					t.Errorf("expected log level warn, got %s", settings.LogLevel)
				}
			},
		},
		{
			name: "YAML with env overrides",
			yamlContent: `
server:
  port: 9000
`,
			envOverrides: map[string]string{
				"SERVER_PORT":   "9100",
				"TEST_FRACTION": "0.3",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Server.Port != 9100 {
					t.Errorf("expected env override port 9100, got %d", settings.Server.Port)
				}
				if settings.Trainer.TestFraction != 0.3 {
					t.Errorf("expected env override test fraction 0.3, got %f", settings.Trainer.TestFraction)
				}
			},
		},
		{
			name: "custom feature schema",
			yamlContent: `
features:
  numeric:
    - name: price_usd
  categorical:
    - name: brand_name
    - name: secondary_category
      optional: true
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if len(settings.Schema.Numeric) != 1 || len(settings.Schema.Categorical) != 2 {
					t.Errorf("expected 1 numeric and 2 categorical columns, got %+v", settings.Schema)
				}
				if !settings.Schema.Categorical[1].Optional {
					t.Error("expected secondary_category to be optional")
				}
			},
		},
		{
			name: "schema reading an outcome column",
			yamlContent: `
features:
  numeric:
    - name: price_usd
    - name: loves_count
`,
			wantErr: true,
		},
		{
			name: "bad duration",
			yamlContent: `
server:
  requestTimeout: "soon"
`,
			wantErr: true,
		},
		{
			name:        "invalid YAML",
			yamlContent: `invalid: yaml: content: [`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("load from YAML when config file specified", func(t *testing.T) {
		clearTestEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("data:\n  reportDir: out\n"), 0o644); err != nil {
			t.Fatalf("failed to write test config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.ReportDir != "out" {
			t.Errorf("expected ReportDir 'out', got %s", settings.ReportDir)
		}
	})

	t.Run("load from env when no config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("REPORT_DIR", "env-reports")

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.ReportDir != "env-reports" {
			t.Errorf("expected ReportDir 'env-reports', got %s", settings.ReportDir)
		}
	})
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		common.EnvConfigFile, common.EnvDataFile, common.EnvLabeledFile, common.EnvDataPath,
		common.EnvReportDir, common.EnvExportPath, common.EnvServeVariant, common.EnvHighQuantile,
		common.EnvLowQuantile, common.EnvTestFraction, common.EnvSplitSeed, common.EnvForestTrees,
		common.EnvForestWorkers, common.EnvLinearC, common.EnvLinearMaxIter, common.EnvImportance,
		common.EnvServerPort, common.EnvRateLimit, common.EnvRateBurst, common.EnvReqTimeout,
		common.EnvCORSOrigins, common.EnvAPIURL, common.EnvClientTimeout, common.EnvLogLevel,
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}
}
