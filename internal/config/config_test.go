package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Data:     DataConfig{BasePath: "/data", DatabasePath: "/data/library.db"},
		Auth:     AuthConfig{AccessTokenDuration: time.Hour},
		Metadata: MetadataConfig{UserAgent: "test/1.0", Timeout: time.Second, RequestsPerSecond: 1},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"PRODUCTION", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logger.Level = "loud" }},
		{"empty database path", func(c *Config) { c.Data.DatabasePath = "" }},
		{"zero metadata timeout", func(c *Config) { c.Metadata.Timeout = 0 }},
		{"zero request rate", func(c *Config) { c.Metadata.RequestsPerSecond = 0 }},
		{"blank user agent", func(c *Config) { c.Metadata.UserAgent = "  " }},
		{"zero token duration", func(c *Config) { c.Auth.AccessTokenDuration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("DB_PATH", "")
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "library.db"), cfg.Data.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "search"), cfg.Data.SearchPath)
	assert.Equal(t, filepath.Join(dir, "cache", "metadata"), cfg.Data.CachePath)
	assert.Equal(t, 7*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, "admin", cfg.Migration.FallbackOwner)
	assert.True(t, cfg.Migration.RepairOrphans)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "home-library/1.0 (+https://example.invalid)", cfg.Metadata.UserAgent)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("PORT", "9000")

	cfg, err := Load([]string{"-port", "9100", "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
}

func TestLoad_DBPathEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("DB_PATH", filepath.Join(dir, "elsewhere", "books.db"))

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "elsewhere", "books.db"), cfg.Data.DatabasePath)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("METADATA_TIMEOUT", "soon")

	_, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nHL_TEST_A=one\nHL_TEST_B=\"two words\"\n\nHL_TEST_C='three'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("HL_TEST_A", "")
	t.Setenv("HL_TEST_B", "")
	t.Setenv("HL_TEST_C", "preset")

	require.NoError(t, loadEnvFile(path))

	assert.Equal(t, "one", os.Getenv("HL_TEST_A"))
	assert.Equal(t, "two words", os.Getenv("HL_TEST_B"))
	assert.Equal(t, "preset", os.Getenv("HL_TEST_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOEQUALS\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/a/../b", "")
	require.NoError(t, err)
	assert.Equal(t, "/b", got)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a , ,http://b "))
	assert.Nil(t, splitList(""))
}
