// Package config reads routegraph settings from the environment.
//
// Settings are flat environment variables, optionally seeded from a dotenv
// file. Every accessor has a default, so an empty environment is valid.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Load reads the .env file named by ROUTEGRAPH_ENV (or .env by default),
// then the matching .secret sidecar if it exists. Variables already set in
// the process environment win over both files.
func Load() error {
	envFile := os.Getenv("ROUTEGRAPH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine: every setting has a default.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// DatabasePath returns the SQLite database path.
// Defaults to "routegraph.db" if not set.
func DatabasePath() string {
	p := os.Getenv("ROUTEGRAPH_DB")
	if p == "" {
		return "routegraph.db"
	}
	return p
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// GraphCacheMaxEntries bounds the number of cached knowledge graphs.
// Defaults to 1024 if not set.
func GraphCacheMaxEntries() int {
	n, err := strconv.Atoi(os.Getenv("GRAPH_CACHE_MAX_ENTRIES"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}

// GraphCacheTTL is how long a cached knowledge graph stays fresh, as a Go
// duration ("5m", "90s"). "0" disables expiry.
// Defaults to 5 minutes if not set or invalid.
func GraphCacheTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("GRAPH_CACHE_TTL"))
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// EnumeratorMaxSteps bounds the statements one analysis may visit.
// Defaults to 100000 if not set.
func EnumeratorMaxSteps() int {
	n, err := strconv.Atoi(os.Getenv("ENUMERATOR_MAX_STEPS"))
	if err != nil || n <= 0 {
		return 100_000
	}
	return n
}

// EnumeratorMaxDepth bounds rule statement nesting.
// Defaults to 32 if not set.
func EnumeratorMaxDepth() int {
	n, err := strconv.Atoi(os.Getenv("ENUMERATOR_MAX_DEPTH"))
	if err != nil || n <= 0 {
		return 32
	}
	return n
}

// NewLogger builds a production zap logger at LogLevel. An unknown level
// falls back to info.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(LogLevel())
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
