// Package config loads service settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds PostgreSQL connection settings. The database is optional.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// Enabled reports whether enough settings are present to open a connection.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// Config is the service configuration.
type Config struct {
	Port           string
	LogLevel       string
	MetricsEnabled bool
	ReadyTimeout   time.Duration
	Database       DatabaseConfig
	Capture        CaptureConfig
}

// CaptureConfig controls per-request metric capture. It only applies when a
// database is configured.
type CaptureConfig struct {
	Enabled   bool
	QueueSize int
}

// Load reads configuration from environment variables after loading the
// given dotenv files (".env" when none are named). Missing files are
// ignored and variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		ReadyTimeout:   getEnvDuration("READY_TIMEOUT", 2*time.Second),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            os.Getenv("DB_HOST"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            os.Getenv("DB_NAME"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Capture: CaptureConfig{
			Enabled:   getEnvBool("CAPTURE_ENABLED", true),
			QueueSize: getEnvInt("CAPTURE_QUEUE_SIZE", 1024),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getEnvInt(key string, def int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}
