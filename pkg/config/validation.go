package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"vibelymap/internal/constants"
	errs "vibelymap/pkg/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator collects validation errors across checks.
type ConfigValidator struct {
	errors []ValidationError
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ValidationError, 0)}
}

func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

func (cv *ConfigValidator) GetErrors() []ValidationError { return cv.errors }

func (cv *ConfigValidator) GetErrorsAsString() string {
	var errorStrings []string
	for _, err := range cv.errors {
		errorStrings = append(errorStrings, err.Error())
	}
	return strings.Join(errorStrings, "\n")
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateRequired(validator)
	c.validateFormats(validator)
	c.validateRanges(validator)
	c.validateEnvironment(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}

	return nil
}

func (c *Config) validateRequired(validator *ConfigValidator) {
	if c.GoogleMapsAPIKey == "" {
		validator.AddError("GOOGLE_MAPS_API_KEY", c.GoogleMapsAPIKey, "Google Maps API key is required")
	}

	// At least one vision provider must be configured or analysis can
	// never run. Redis and MySQL are optional degradations; this is not.
	if c.OpenAIAPIKey == "" && c.GeminiAPIKey == "" {
		validator.AddError("OPENAI_API_KEY", "", "at least one of OPENAI_API_KEY or GEMINI_API_KEY is required")
	}

	if c.Port == "" {
		validator.AddError("PORT", c.Port, "port is required")
	}
}

func (c *Config) validateFormats(validator *ConfigValidator) {
	if c.DatabaseURL != "" {
		if !strings.Contains(c.DatabaseURL, "@") || !strings.Contains(c.DatabaseURL, "/") {
			validator.AddError("DATABASE_URL", c.DatabaseURL, "invalid database URL format")
		}
	}

	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		validator.AddError("REDIS_URL", c.RedisURL, "invalid redis URL (must start with redis:// or rediss://)")
	}

	if c.Port != "" {
		if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
			validator.AddError("PORT", c.Port, "invalid port number (must be 1-65535)")
		}
	}

	if c.HealthCheckPort != "" {
		if port, err := strconv.Atoi(c.HealthCheckPort); err != nil || port < 1 || port > 65535 {
			validator.AddError("HEALTH_CHECK_PORT", c.HealthCheckPort, "invalid health check port number")
		}
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if c.LogLevel != "" && !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: trace, debug, info, warn, error, fatal)")
	}

	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}
}

func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.CacheTTLDays < 1 || c.CacheTTLDays > 365 {
		validator.AddError("CACHE_TTL_DAYS", strconv.Itoa(c.CacheTTLDays), "cache TTL must be between 1 and 365 days")
	}

	if c.BatchGroupSize < 1 || c.BatchGroupSize > 20 {
		validator.AddError("BATCH_GROUP_SIZE", strconv.Itoa(c.BatchGroupSize), "batch group size must be between 1 and 20")
	}

	if c.BatchStagger < 0 {
		validator.AddError("BATCH_STAGGER_MS", c.BatchStagger.String(), "batch stagger must not be negative")
	}

	if c.PhotoMaxPerVenue < 1 || c.PhotoMaxPerVenue > constants.PhotoHardMaxPerVenue {
		validator.AddError("PHOTO_MAX_PER_VENUE", strconv.Itoa(c.PhotoMaxPerVenue),
			fmt.Sprintf("photos per venue must be between 1 and %d", constants.PhotoHardMaxPerVenue))
	}

	if c.VisionTemperature < 0 || c.VisionTemperature > 2 {
		validator.AddError("VISION_TEMPERATURE", fmt.Sprintf("%v", c.VisionTemperature), "temperature must be between 0 and 2")
	}

	if c.VisionMaxTokens < 50 || c.VisionMaxTokens > 4096 {
		validator.AddError("VISION_MAX_TOKENS", strconv.Itoa(c.VisionMaxTokens), "max tokens must be between 50 and 4096")
	}

	if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
		validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
	}

	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
	}
}

func (c *Config) validateEnvironment(validator *ConfigValidator) {
	if c.EnableFileLogging && c.LogFile != "" {
		if err := checkDirectoryWritable(c.LogFile); err != nil {
			validator.AddError("LOG_FILE", c.LogFile, fmt.Sprintf("log directory is not writable: %v", err))
		}
	}

	ports := map[string]string{
		"PORT":              c.Port,
		"HEALTH_CHECK_PORT": c.HealthCheckPort,
	}

	usedPorts := make(map[string]string)
	for name, port := range ports {
		if port != "" && port != "0" {
			if existing, exists := usedPorts[port]; exists {
				validator.AddError(name, port, fmt.Sprintf("port conflict with %s", existing))
			} else {
				usedPorts[port] = name
			}
		}
	}
}

// checkDirectoryWritable checks if a directory is writable
func checkDirectoryWritable(filePath string) error {
	dir := filePath
	if !strings.HasSuffix(filePath, "/") {
		lastSlash := strings.LastIndex(filePath, "/")
		if lastSlash > 0 {
			dir = filePath[:lastSlash]
		} else {
			dir = "."
		}
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.NewValidation("config.checkDirectoryWritable", "cannot create directory", err)
		}
	}

	tempFile := fmt.Sprintf("%s/.write_test_%d", dir, os.Getpid())
	file, err := os.Create(tempFile)
	if err != nil {
		return errs.NewValidation("config.checkDirectoryWritable", "directory is not writable", err)
	}
	file.Close()
	os.Remove(tempFile)

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfigSummary returns a summary of the configuration (excluding sensitive data)
func (c *Config) GetConfigSummary() map[string]interface{} {
	return map[string]interface{}{
		"database_url":        maskString(c.DatabaseURL, 20),
		"redis_url":           maskString(c.RedisURL, 12),
		"google_maps_api_key": maskString(c.GoogleMapsAPIKey, 10),
		"openai_api_key":      maskString(c.OpenAIAPIKey, 10),
		"gemini_api_key":      maskString(c.GeminiAPIKey, 10),
		"openai_model":        c.OpenAIModel,
		"gemini_model":        c.GeminiModel,
		"port":                c.Port,
		"cache_ttl_days":      c.CacheTTLDays,
		"batch_group_size":    c.BatchGroupSize,
		"batch_stagger":       c.BatchStagger.String(),
		"photo_max_per_venue": c.PhotoMaxPerVenue,
		"log_level":           c.LogLevel,
		"log_format":          c.LogFormat,
		"log_file":            c.LogFile,
		"enable_file_logging": c.EnableFileLogging,
		"health_check_port":   c.HealthCheckPort,
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}
