package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig is a baseline that passes Validate; tests break one field
// at a time.
func validConfig() *Config {
	return &Config{
		Port:              "8080",
		GoogleMapsAPIKey:  "maps-key",
		OpenAIAPIKey:      "openai-key",
		CacheTTLDays:      30,
		BatchGroupSize:    3,
		BatchStagger:      time.Second,
		PhotoMaxPerVenue:  6,
		VisionTemperature: 0.1,
		VisionMaxTokens:   300,
		DBMaxOpenConns:    20,
		DBMaxIdleConns:    5,
		LogLevel:          "info",
		LogFormat:         "json",
		EnableFileLogging: false,
		HealthCheckPort:   "8081",
		Env:               "development",
	}
}

func TestLoadDefaults(t *testing.T) {
	// Make sure ambient environment does not leak into the defaults.
	for _, key := range []string{
		"PORT", "REDIS_URL", "DATABASE_URL", "CACHE_TTL_DAYS",
		"OPENAI_MODEL", "GEMINI_MODEL", "BATCH_GROUP_SIZE", "BATCH_STAGGER_MS",
		"LOG_LEVEL", "ENV", "HEALTH_CHECK_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CacheTTLDays != 30 {
		t.Errorf("CacheTTLDays = %d", cfg.CacheTTLDays)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("models = %q / %q", cfg.OpenAIModel, cfg.GeminiModel)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("logging = %q / %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.HealthCheckPort != "8081" {
		t.Errorf("HealthCheckPort = %q", cfg.HealthCheckPort)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Errorf("optional backends should default to disabled: %q %q", cfg.RedisURL, cfg.DatabaseURL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL_DAYS", "7")
	t.Setenv("BATCH_GROUP_SIZE", "5")
	t.Setenv("BATCH_STAGGER_MS", "250")
	t.Setenv("VISION_TEMPERATURE", "0.4")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CacheTTLDays != 7 {
		t.Errorf("CacheTTLDays = %d", cfg.CacheTTLDays)
	}
	if cfg.BatchGroupSize != 5 || cfg.BatchStagger != 250*time.Millisecond {
		t.Errorf("batch = %d / %v", cfg.BatchGroupSize, cfg.BatchStagger)
	}
	if cfg.VisionTemperature != 0.4 {
		t.Errorf("VisionTemperature = %v", cfg.VisionTemperature)
	}
}

func TestValidateAcceptsBaseline(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("baseline config rejected: %v", err)
	}
}

func TestValidateCatchesErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing maps key", func(c *Config) { c.GoogleMapsAPIKey = "" }, "GOOGLE_MAPS_API_KEY"},
		{"no vision provider", func(c *Config) { c.OpenAIAPIKey = ""; c.GeminiAPIKey = "" }, "OPENAI_API_KEY"},
		{"bad port", func(c *Config) { c.Port = "99999" }, "PORT"},
		{"bad redis url", func(c *Config) { c.RedisURL = "localhost:6379" }, "REDIS_URL"},
		{"bad database url", func(c *Config) { c.DatabaseURL = "just-a-host" }, "DATABASE_URL"},
		{"ttl out of range", func(c *Config) { c.CacheTTLDays = 0 }, "CACHE_TTL_DAYS"},
		{"group size out of range", func(c *Config) { c.BatchGroupSize = 21 }, "BATCH_GROUP_SIZE"},
		{"negative stagger", func(c *Config) { c.BatchStagger = -time.Second }, "BATCH_STAGGER_MS"},
		{"too many photos", func(c *Config) { c.PhotoMaxPerVenue = 50 }, "PHOTO_MAX_PER_VENUE"},
		{"temperature too high", func(c *Config) { c.VisionTemperature = 3 }, "VISION_TEMPERATURE"},
		{"tokens too low", func(c *Config) { c.VisionMaxTokens = 10 }, "VISION_MAX_TOKENS"},
		{"idle above open", func(c *Config) { c.DBMaxIdleConns = 100 }, "DB_MAX_IDLE_CONNS"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"port conflict", func(c *Config) { c.HealthCheckPort = c.Port }, "HEALTH_CHECK_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error does not mention %s: %v", tt.field, err)
			}
		})
	}
}

func TestValidRedisAndDatabaseURLs(t *testing.T) {
	cfg := validConfig()
	cfg.RedisURL = "redis://localhost:6379/0"
	cfg.DatabaseURL = "user:pass@tcp(localhost:3306)/vibelymap"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid backend URLs rejected: %v", err)
	}
}

func TestGetConfigSummaryMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAIAPIKey = "sk-verysecretvalue"
	summary := cfg.GetConfigSummary()

	for k, v := range summary {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if strings.Contains(s, "verysecretvalue") {
			t.Errorf("summary field %q leaks a secret: %q", k, s)
		}
	}
}
