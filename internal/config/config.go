// Package config loads server configuration from command-line flags, environment
// variables and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Metadata  MetadataConfig
	Migration MigrationConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk locations. Everything except DatabasePath lives
// under BasePath unless overridden.
type DataConfig struct {
	BasePath     string
	DatabasePath string // default: {base}/library.db
	SearchPath   string // default: {base}/search
	CachePath    string // default: {base}/cache/metadata
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, filled in by auth.LoadOrGenerateKey.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
	// Login attempts allowed per client per minute.
	LoginAttemptsPerMinute int
}

// MetadataConfig configures the ISBN resolver and its providers.
type MetadataConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	OpenLibraryURL    string
	CoversURL         string
	GoogleBooksURL    string
	GoogleBooksAPIKey string
	CacheEnabled      bool
	CacheTTL          time.Duration
}

// MigrationConfig controls the startup schema migration.
type MigrationConfig struct {
	// FallbackOwner receives books whose owner column is NULL. Only used when
	// RepairOrphans is set and the user exists.
	FallbackOwner string
	RepairOrphans bool
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("homelibrary", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for data storage")
	dbPath := fs.String("db-path", "", "SQLite database file (default: {data-path}/library.db)")

	port := fs.String("port", "", "Server port (default: 8000)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	origins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 24h)")

	metadataTimeout := fs.String("metadata-timeout", "", "Per-request timeout for ISBN providers (default: 7s)")
	userAgent := fs.String("user-agent", "", "User-Agent sent to ISBN providers")
	cacheTTL := fs.String("metadata-cache-ttl", "", "How long resolved ISBNs stay cached (default: 168h)")

	fallbackOwner := fs.String("fallback-owner", "", "Username that receives ownerless books (default: admin)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is normal.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			DatabasePath: getConfigValue(*dbPath, "DB_PATH", ""),
			SearchPath:   getConfigValue("", "SEARCH_PATH", ""),
			CachePath:    getConfigValue("", "METADATA_CACHE_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*port, "PORT", "8000"),
			AllowedOrigins: splitList(getConfigValue(*origins, "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			LoginAttemptsPerMinute: getIntConfigValue("", "LOGIN_ATTEMPTS_PER_MINUTE", 10),
		},
		Metadata: MetadataConfig{
			UserAgent:         getConfigValue(*userAgent, "METADATA_USER_AGENT", "home-library/1.0 (+https://example.invalid)"),
			RequestsPerSecond: getFloatConfigValue("", "METADATA_REQUESTS_PER_SECOND", 2),
			OpenLibraryURL:    getConfigValue("", "OPENLIBRARY_URL", "https://openlibrary.org"),
			CoversURL:         getConfigValue("", "OPENLIBRARY_COVERS_URL", "https://covers.openlibrary.org"),
			GoogleBooksURL:    getConfigValue("", "GOOGLE_BOOKS_URL", "https://www.googleapis.com/books/v1"),
			GoogleBooksAPIKey: getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
			CacheEnabled:      getBoolConfigValue("", "METADATA_CACHE_ENABLED", true),
		},
		Migration: MigrationConfig{
			FallbackOwner: getConfigValue(*fallbackOwner, "MIGRATION_FALLBACK_OWNER", "admin"),
			RepairOrphans: getBoolConfigValue("", "MIGRATION_REPAIR_ORPHANS", true),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{*metadataTimeout, "METADATA_TIMEOUT", "7s", &cfg.Metadata.Timeout},
		{*cacheTTL, "METADATA_CACHE_TTL", "168h", &cfg.Metadata.CacheTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.DatabasePath == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Metadata.Timeout <= 0 {
		return errors.New("metadata timeout must be positive")
	}
	if c.Metadata.RequestsPerSecond <= 0 {
		return errors.New("metadata requests per second must be positive")
	}
	if strings.TrimSpace(c.Metadata.UserAgent) == "" {
		return errors.New("metadata user agent cannot be empty")
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// An empty path resolves to defaultPath unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "HomeLibrary"))
	if err != nil {
		return err
	}
	c.Data.BasePath = base

	paths := []struct {
		dst *string
		def string
	}{
		{&c.Data.DatabasePath, filepath.Join(base, "library.db")},
		{&c.Data.SearchPath, filepath.Join(base, "search")},
		{&c.Data.CachePath, filepath.Join(base, "cache", "metadata")},
	}
	for _, p := range paths {
		expanded, err := expandPath(*p.dst, p.def)
		if err != nil {
			return err
		}
		*p.dst = expanded
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (any case) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines from path. Variables already present in
// the environment are left alone.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- operator-supplied config path
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
