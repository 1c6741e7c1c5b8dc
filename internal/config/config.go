package config

import "os"

// Config holds the runtime settings for the analyzer service.
type Config struct {
	Port     string
	LogLevel string
	GinMode  string
}

// Load reads the configuration from environment variables, falling back to
// sane defaults for local runs.
func Load() Config {
	return Config{
		Port:     envOr("ANALYZER_PORT", "8084"),
		LogLevel: envOr("LOG_LEVEL", "info"),
		GinMode:  envOr("GIN_MODE", "release"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
