package common

// Environment variable keys
const (
	EnvConfigFile    = "CONFIG_FILE"
	EnvDataFile      = "DATA_FILE"
	EnvLabeledFile   = "LABELED_FILE"
	EnvDataPath      = "DATA_PATH"
	EnvReportDir     = "REPORT_DIR"
	EnvExportPath    = "EXPORT_PATH"
	EnvServeVariant  = "SERVE_VARIANT"
	EnvHighQuantile  = "HIGH_QUANTILE"
	EnvLowQuantile   = "LOW_QUANTILE"
	EnvTestFraction  = "TEST_FRACTION"
	EnvSplitSeed     = "SPLIT_SEED"
	EnvForestTrees   = "FOREST_TREES"
	EnvForestWorkers = "FOREST_WORKERS"
	EnvLinearC       = "LR_C"
	EnvLinearMaxIter = "LR_MAX_ITER"
	EnvImportance    = "IMPORTANCE_REPEATS"
	EnvServerPort    = "SERVER_PORT"
	EnvRateLimit     = "RATE_LIMIT"
	EnvRateBurst     = "RATE_BURST"
	EnvReqTimeout    = "REQUEST_TIMEOUT"
	EnvCORSOrigins   = "CORS_ORIGINS"
	EnvAPIURL        = "API_URL"
	EnvClientTimeout = "CLIENT_TIMEOUT"
	EnvLogLevel      = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultDataFile       = "data/product_info.csv"
	DefaultLabeledFile    = "data/product_info_labeled.csv"
	DefaultDataPath       = "data"
	DefaultReportDir      = "reports"
	DefaultServeVariant   = "random_forest"
	DefaultServerPort     = 8080
	DefaultRateLimit      = 50.0 // requests per second
	DefaultRateBurst      = 100
	DefaultAPIURL         = "http://localhost:8080"
	DefaultLogLevel       = "info"
	DefaultCORSOrigin     = "*"
	DefaultRequestTimeout = 10 // seconds
	DefaultClientTimeout  = 5  // seconds
)
