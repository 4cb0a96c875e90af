package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// Upload limits
	MaxFileSize int64
	MaxPages    int

	// Rasterization
	RasterDPI    int
	PdftoppmPath string
	TempDir      string

	Version string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8080"),
		RequestTimeout: parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		MaxFileSize:    parseIntOrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MiB
		MaxPages:       int(parseIntOrDefault("MAX_PAGES", 100)),
		RasterDPI:      int(parseIntOrDefault("RASTER_DPI", 200)),
		PdftoppmPath:   getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		TempDir:        getEnvOrDefault("TEMP_DIR", os.TempDir()),
		Version:        "1.1.0",
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be > 0 (got %d)", cfg.MaxFileSize)
	}
	if cfg.MaxPages <= 0 {
		return nil, fmt.Errorf("MAX_PAGES must be > 0 (got %d)", cfg.MaxPages)
	}
	if cfg.RasterDPI < 72 || cfg.RasterDPI > 1200 {
		return nil, fmt.Errorf("RASTER_DPI out of range [72,1200] (got %d)", cfg.RasterDPI)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", cfg.RequestTimeout)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
