// Package config loads runtime configuration from environment variables and
// command line flags. Flags take precedence over environment variables.
package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Addr         string
	DBPath       string
	CVECachePath string

	GeminiAPIKey string
	GeminiModel  string

	NVDAPIKey  string
	NVDTimeout time.Duration

	MockMode bool
	Debug    bool
}

// Load parses environment variables and command line flags.
func Load() *Config {
	cfg := &Config{}

	// Defaults and environment variables
	cfg.Addr = getEnv("TRUSTLENS_ADDR", ":8080")
	cfg.DBPath = getEnv("TRUSTLENS_DB", defaultDataPath("trustlens.db"))
	cfg.CVECachePath = getEnv("TRUSTLENS_CVE_DB", defaultDataPath("cve_cache.db"))
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	cfg.GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.NVDAPIKey = getEnv("NVD_API_KEY", "")
	cfg.NVDTimeout = getEnvDuration("TRUSTLENS_NVD_TIMEOUT", 30*time.Second)
	cfg.MockMode = getEnvBool("TRUSTLENS_MOCK", false)

	// Command line flags (override env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to assessment SQLite database")
	flag.StringVar(&cfg.CVECachePath, "cve-db", cfg.CVECachePath, "Path to CVE cache SQLite database")
	flag.StringVar(&cfg.GeminiModel, "model", cfg.GeminiModel, "Gemini model identifier")
	flag.DurationVar(&cfg.NVDTimeout, "nvd-timeout", cfg.NVDTimeout, "Timeout for NVD API requests")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run with a scripted model backend (no API key needed)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// defaultDataPath returns a path under ~/.trustlens, creating the directory
// when possible and falling back to the working directory otherwise.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return name
	}

	dir := filepath.Join(home, ".trustlens")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .trustlens directory, using current dir: %v", err)
		return name
	}

	return filepath.Join(dir, name)
}
