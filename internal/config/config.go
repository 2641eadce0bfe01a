package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// DatabaseURL selects the durable history store. Empty falls back to
	// the in-memory store (development only).
	DatabaseURL string

	// RedisAddr enables the cross-instance broadcast relay when set.
	RedisAddr string

	// ClassifierURL points at the model server scoring image posts.
	// Image submissions are rejected when unset.
	ClassifierURL string

	// S3 settings for the image bucket. Empty endpoint falls back to the
	// in-memory object store (development only).
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	// HistoryLimit caps how many messages are replayed on join. Zero
	// means no cap.
	HistoryLimit int
}

// Load reads configuration from environment variables. In development it
// loads from a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		ClassifierURL: os.Getenv("CLASSIFIER_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3Bucket:      getEnv("S3_BUCKET", "modchat-images"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:      getEnv("S3_USE_SSL", "false") == "true",
	}

	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HistoryLimit = n
		}
	}

	// In production, require the real stores.
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.S3Endpoint == "" {
			panic("S3_ENDPOINT is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
