// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/usestring/privacyshield/pkg/client"
	"github.com/usestring/privacyshield/pkg/shield"
)

// Executor defaults
const (
	DefaultQueryTimeoutMs   = 15000
	DefaultQueryConcurrency = shield.DefaultConcurrency
)

// Config holds all configuration for the shield server and CLI.
type Config struct {
	ProviderURL       string        // SHIELD_PROVIDER_URL, default "http://localhost:3002/lookup"
	Profile           string        // SHIELD_PROFILE, default "" (the profiles file default, else everyday-monitor)
	ProfilesFile      string        // SHIELD_PROFILES_FILE, default "" (built-in profiles only)
	NetworkMode       string        // SHIELD_NETWORK_MODE, default "online"
	RandomSeed        uint64        // SHIELD_RANDOM_SEED, default 0 (seed from the OS)
	QueryTimeout      time.Duration // QUERY_TIMEOUT_MS, default 15000ms
	QueryConcurrency  int           // QUERY_CONCURRENCY, default 4
	HTTPClientTimeout time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 30000ms
	MaxResponseBytes  int           // MAX_RESPONSE_BYTES, default 4 MiB
	FormatCorpusKinds int           // FORMAT_CORPUS_KINDS, default 64
	UserAgent         string        // USER_AGENT, default client.DefaultUserAgent

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ProviderURL:       getEnvString("SHIELD_PROVIDER_URL", "http://localhost:3002/lookup"),
		Profile:           getEnvString("SHIELD_PROFILE", ""),
		ProfilesFile:      getEnvString("SHIELD_PROFILES_FILE", ""),
		NetworkMode:       getEnvString("SHIELD_NETWORK_MODE", "online"),
		RandomSeed:        getEnvUint64("SHIELD_RANDOM_SEED", 0),
		QueryTimeout:      getEnvDurationMs("QUERY_TIMEOUT_MS", DefaultQueryTimeoutMs),
		QueryConcurrency:  getEnvInt("QUERY_CONCURRENCY", DefaultQueryConcurrency),
		HTTPClientTimeout: getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 30000),
		MaxResponseBytes:  getEnvInt("MAX_RESPONSE_BYTES", client.DefaultMaxBodyBytes),
		FormatCorpusKinds: getEnvInt("FORMAT_CORPUS_KINDS", 64),
		UserAgent:         getEnvString("USER_AGENT", client.DefaultUserAgent),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
