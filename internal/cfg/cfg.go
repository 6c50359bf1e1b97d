package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hype-classifier/internal/common"
	"hype-classifier/internal/evaluate"
	"hype-classifier/internal/features"
	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataFile     string // raw product CSV
	LabeledFile  string // labeled CSV written by the label command
	DataPath     string // directory of the model database
	ReportDir    string
	ExportPath   string // optional artifact export file
	ServeVariant ml.Kind
	Label        label.Config
	Schema       features.Schema
	Trainer      ml.TrainerConfig
	Importance   evaluate.ImportanceConfig
	Server       ServerSettings
	APIURL       string
	Timeout      time.Duration // client request timeout
	LogLevel     string
}

type ServerSettings struct {
	Port           int
	RateLimit      float64 // requests per second
	RateBurst      int
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type ConfigFile struct {
	Data struct {
		File        string `yaml:"file"`
		LabeledFile string `yaml:"labeledFile"`
		DataPath    string `yaml:"dataPath"`
		ReportDir   string `yaml:"reportDir"`
		ExportPath  string `yaml:"exportPath"`
	} `yaml:"data"`

	Labeling label.Config `yaml:"labeling"`

	Features features.Schema `yaml:"features"`

	Training ml.TrainerConfig `yaml:"training"`

	Evaluation struct {
		Importance evaluate.ImportanceConfig `yaml:"importance"`
	} `yaml:"evaluation"`

	Server struct {
		Port           int      `yaml:"port"`
		Variant        string   `yaml:"variant"`
		RateLimit      float64  `yaml:"rateLimit"`
		RateBurst      int      `yaml:"rateBurst"`
		RequestTimeout string   `yaml:"requestTimeout"`
		CORSOrigins    []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Client struct {
		APIURL  string `yaml:"apiURL"`
		Timeout string `yaml:"timeout"`
	} `yaml:"client"`

	System struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Defaults returns the settings used when neither a config file nor
// environment variables override a value.
func Defaults() Settings {
	return Settings{
		DataFile:     common.DefaultDataFile,
		LabeledFile:  common.DefaultLabeledFile,
		DataPath:     common.DefaultDataPath,
		ReportDir:    common.DefaultReportDir,
		ServeVariant: ml.Kind(common.DefaultServeVariant),
		Label:        label.DefaultConfig(),
		Schema:       features.DefaultSchema(),
		Trainer:      ml.DefaultTrainerConfig(),
		Importance:   evaluate.DefaultImportanceConfig(),
		Server: ServerSettings{
			Port:           common.DefaultServerPort,
			RateLimit:      common.DefaultRateLimit,
			RateBurst:      common.DefaultRateBurst,
			RequestTimeout: common.DefaultRequestTimeout * time.Second,
			CORSOrigins:    []string{common.DefaultCORSOrigin},
		},
		APIURL:   common.DefaultAPIURL,
		Timeout:  common.DefaultClientTimeout * time.Second,
		LogLevel: common.DefaultLogLevel,
	}
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Sections absent from the file keep their defaults.
	def := Defaults()
	config := ConfigFile{
		Labeling: def.Label,
		Features: def.Schema,
		Training: def.Trainer,
	}
	config.Evaluation.Importance = def.Importance

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := parseDurationOr(config.Server.RequestTimeout, def.Server.RequestTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("server.requestTimeout: %w", err)
	}
	timeout, err := parseDurationOr(config.Client.Timeout, def.Timeout)
	if err != nil {
		return Settings{}, fmt.Errorf("client.timeout: %w", err)
	}

	settings := Settings{
		DataFile:     stringOr(config.Data.File, def.DataFile),
		LabeledFile:  stringOr(config.Data.LabeledFile, def.LabeledFile),
		DataPath:     stringOr(config.Data.DataPath, def.DataPath),
		ReportDir:    stringOr(config.Data.ReportDir, def.ReportDir),
		ExportPath:   config.Data.ExportPath,
		ServeVariant: ml.Kind(stringOr(config.Server.Variant, string(def.ServeVariant))),
		Label:        config.Labeling,
		Schema:       config.Features,
		Trainer:      config.Training,
		Importance:   config.Evaluation.Importance,
		Server: ServerSettings{
			Port:           intOr(config.Server.Port, def.Server.Port),
			RateLimit:      floatOr(config.Server.RateLimit, def.Server.RateLimit),
			RateBurst:      intOr(config.Server.RateBurst, def.Server.RateBurst),
			RequestTimeout: requestTimeout,
			CORSOrigins:    def.Server.CORSOrigins,
		},
		APIURL:   stringOr(config.Client.APIURL, def.APIURL),
		Timeout:  timeout,
		LogLevel: stringOr(config.System.LogLevel, def.LogLevel),
	}
	if len(config.Server.CORSOrigins) > 0 {
		settings.Server.CORSOrigins = config.Server.CORSOrigins
	}

	// Override with environment variables if they exist
	applyEnv(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Defaults()
	applyEnv(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// applyEnv overrides s with every environment variable that is set and
// parses. Unparseable values are ignored.
func applyEnv(s *Settings) {
	s.DataFile = getEnvOrDefault(common.EnvDataFile, s.DataFile)
	s.LabeledFile = getEnvOrDefault(common.EnvLabeledFile, s.LabeledFile)
	s.DataPath = getEnvOrDefault(common.EnvDataPath, s.DataPath)
	s.ReportDir = getEnvOrDefault(common.EnvReportDir, s.ReportDir)
	s.ExportPath = getEnvOrDefault(common.EnvExportPath, s.ExportPath)
	s.ServeVariant = ml.Kind(getEnvOrDefault(common.EnvServeVariant, string(s.ServeVariant)))

	s.Label.HighQuantile = getFloatOrDefault(common.EnvHighQuantile, s.Label.HighQuantile)
	s.Label.LowQuantile = getFloatOrDefault(common.EnvLowQuantile, s.Label.LowQuantile)

	s.Trainer.TestFraction = getFloatOrDefault(common.EnvTestFraction, s.Trainer.TestFraction)
	if seed := getUintOrDefault(common.EnvSplitSeed, s.Trainer.Seed); seed != s.Trainer.Seed {
		s.Trainer.Seed = seed
		s.Trainer.Forest.Seed = seed
		s.Importance.Seed = seed
	}
	s.Trainer.Forest.Trees = getIntOrDefault(common.EnvForestTrees, s.Trainer.Forest.Trees)
	s.Trainer.Forest.Workers = getIntOrDefault(common.EnvForestWorkers, s.Trainer.Forest.Workers)
	s.Trainer.Linear.C = getFloatOrDefault(common.EnvLinearC, s.Trainer.Linear.C)
	s.Trainer.Linear.MaxIter = getIntOrDefault(common.EnvLinearMaxIter, s.Trainer.Linear.MaxIter)
	s.Importance.Repeats = getIntOrDefault(common.EnvImportance, s.Importance.Repeats)

	s.Server.Port = getIntOrDefault(common.EnvServerPort, s.Server.Port)
	s.Server.RateLimit = getFloatOrDefault(common.EnvRateLimit, s.Server.RateLimit)
	s.Server.RateBurst = getIntOrDefault(common.EnvRateBurst, s.Server.RateBurst)
	s.Server.RequestTimeout = getDurationOrDefault(common.EnvReqTimeout, s.Server.RequestTimeout)
	s.Server.CORSOrigins = splitOrDefault(os.Getenv(common.EnvCORSOrigins), s.Server.CORSOrigins)

	s.APIURL = getEnvOrDefault(common.EnvAPIURL, s.APIURL)
	s.Timeout = getDurationOrDefault(common.EnvClientTimeout, s.Timeout)
	s.LogLevel = getEnvOrDefault(common.EnvLogLevel, s.LogLevel)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func intOr(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func floatOr(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func parseDurationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate paths
	if settings.DataFile == "" {
		return fmt.Errorf("data file cannot be empty")
	}
	if settings.LabeledFile == "" {
		return fmt.Errorf("labeled file cannot be empty")
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.ReportDir == "" {
		return fmt.Errorf("report directory cannot be empty")
	}

	// Validate pipeline stages
	if err := settings.Label.Validate(); err != nil {
		return fmt.Errorf("labeling: %w", err)
	}
	if err := settings.Schema.Validate(settings.Label.Columns.Outcome()...); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := settings.Trainer.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if settings.Importance.Enabled && (settings.Importance.Repeats <= 0 || settings.Importance.Repeats > 100) {
		return fmt.Errorf("importance repeats must be between 1 and 100, got %d", settings.Importance.Repeats)
	}

	// Validate serving
	if _, err := ml.ParseKind(string(settings.ServeVariant)); err != nil {
		return fmt.Errorf("serve variant: %w", err)
	}
	if settings.Server.Port < 1024 || settings.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1024 and 65535, got %d", settings.Server.Port)
	}
	if settings.Server.RateLimit <= 0 || settings.Server.RateLimit > 10000 {
		return fmt.Errorf("rate limit must be between 0 and 10000 requests per second, got %f", settings.Server.RateLimit)
	}
	if settings.Server.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive, got %d", settings.Server.RateBurst)
	}
	if settings.Server.RequestTimeout < time.Second || settings.Server.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 1m, got %v", settings.Server.RequestTimeout)
	}
	if len(settings.Server.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be specified")
	}

	// Validate client
	if settings.APIURL == "" {
		return fmt.Errorf("API URL cannot be empty")
	}
	if settings.Timeout < time.Second || settings.Timeout > time.Minute {
		return fmt.Errorf("client timeout must be between 1s and 1m, got %v", settings.Timeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
