package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"vibelymap/internal/constants"
)

type Config struct {
	Port            string
	AdminConfigPath string

	// Tag cache (Redis). Empty URL disables caching entirely.
	RedisURL     string
	CacheTTLDays int

	// Audit trail (MySQL). Empty URL disables event persistence.
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Venue sourcing
	GoogleMapsAPIKey string

	// Vision providers. A provider without a key is skipped at startup.
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	VisionTemperature float64
	VisionMaxTokens   int
	VisionTimeout     time.Duration

	// Batch scheduling
	BatchGroupSize int
	BatchStagger   time.Duration

	// Photo normalization
	PhotoMaxPerVenue int

	// Monitoring and logging settings
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Health check settings
	HealthCheckPort string
	HealthCheckPath string

	// Environment & profiling/metrics
	Env              string // development, staging, production
	ProfilingEnabled bool
	ProfilingPort    string // also used as admin port
	MetricsEnabled   bool
	MetricsPath      string

	// Prompts templates overrides
	PromptDir string // path to external templates dir; empty = use embedded only

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	cacheTTLDays, _ := strconv.Atoi(getEnv("CACHE_TTL_DAYS", "30"))

	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))
	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))

	visionTemp, _ := strconv.ParseFloat(getEnv("VISION_TEMPERATURE", "0.1"), 64)
	visionMaxTokens, _ := strconv.Atoi(getEnv("VISION_MAX_TOKENS", "300"))
	visionTimeoutSec, _ := strconv.Atoi(getEnv("VISION_TIMEOUT_SECONDS", "60"))

	batchGroupSize, _ := strconv.Atoi(getEnv("BATCH_GROUP_SIZE", strconv.Itoa(constants.BatchGroupSizeDefault)))
	batchStaggerMs, _ := strconv.Atoi(getEnv("BATCH_STAGGER_MS", strconv.Itoa(int(constants.BatchStaggerDefault/time.Millisecond))))

	photoMaxPerVenue, _ := strconv.Atoi(getEnv("PHOTO_MAX_PER_VENUE", strconv.Itoa(constants.PhotoMaxPerVenue)))

	enableFileLogging, _ := strconv.ParseBool(getEnv("ENABLE_FILE_LOGGING", "true"))

	env := strings.ToLower(getEnv("ENV", "development"))
	profilingDefault := env == "development" || env == "staging"
	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", strconv.FormatBool(profilingDefault)))
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(profilingDefault)))

	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "2"))

	return &Config{
		Port:            getEnv("PORT", "8080"),
		AdminConfigPath: getEnv("ADMIN_CONFIG_PATH", "./admins.yaml"),

		RedisURL:     getEnv("REDIS_URL", ""),
		CacheTTLDays: cacheTTLDays,

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		VisionTemperature: visionTemp,
		VisionMaxTokens:   visionMaxTokens,
		VisionTimeout:     time.Duration(visionTimeoutSec) * time.Second,

		BatchGroupSize: batchGroupSize,
		BatchStagger:   time.Duration(batchStaggerMs) * time.Millisecond,

		PhotoMaxPerVenue: photoMaxPerVenue,

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/vibelymap/app.log"),
		EnableFileLogging: enableFileLogging,

		HealthCheckPort: getEnv("HEALTH_CHECK_PORT", "8081"),
		HealthCheckPath: getEnv("HEALTH_CHECK_PATH", "/health"),

		Env:              env,
		ProfilingEnabled: profilingEnabled,
		ProfilingPort:    getEnv("PROFILING_PORT", "6060"),
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),

		PromptDir: getEnv("PROMPT_DIR", ""),

		ConfigReloadIntervalSeconds: reloadIntSec,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
