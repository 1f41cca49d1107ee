// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the runtime configuration shared by every binary.
type Config struct {
	App     AppConfig
	Gemini  GeminiConfig
	Session SessionConfig
	Storage StorageConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Port int
	// AllowedOrigin is an extra CORS origin besides localhost.
	AllowedOrigin string
}

type GeminiConfig struct {
	ImageModel string
	TextModel  string
}

type SessionConfig struct {
	EditTimeout time.Duration
	TTL         time.Duration
	MaxUpload   int64
}

type StorageConfig struct {
	// Bucket and Table enable the S3 + DynamoDB archive when both are set.
	Bucket string
	Table  string
	// ArchiveDir enables the local directory archive when the cloud one is off.
	ArchiveDir string
	// Retention expires cloud project records after this long. Zero keeps them.
	Retention time.Duration
}

type MetricsConfig struct {
	// Namespace is the EMF namespace. Empty disables metrics.
	Namespace string
}

// CloudArchive reports whether the S3 + DynamoDB archive is configured.
func (c StorageConfig) CloudArchive() bool {
	return c.Bucket != "" && c.Table != ""
}

// Load reads .env (when present in the working directory) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Msg(".env file not found, using system environment")
		} else {
			log.Warn().Err(err).Msg("Failed to parse .env file")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		App: AppConfig{
			Port:          getEnvAsInt("PORT", 8080),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", ""),
		},
		Gemini: GeminiConfig{
			ImageModel: getEnv("GEMINI_IMAGE_MODEL", ""),
			TextModel:  getEnv("GEMINI_TEXT_MODEL", ""),
		},
		Session: SessionConfig{
			EditTimeout: getEnvAsDuration("EDIT_TIMEOUT", 90*time.Second),
			TTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
			MaxUpload:   int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
		},
		Storage: StorageConfig{
			Bucket:     getEnv("PROJECT_BUCKET_NAME", ""),
			Table:      getEnv("PROJECT_TABLE_NAME", ""),
			ArchiveDir: getEnv("PROJECT_ARCHIVE_DIR", ""),
			Retention:  getEnvAsDuration("PROJECT_RETENTION", 0),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "ProductCraft"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
	return fallback
}
