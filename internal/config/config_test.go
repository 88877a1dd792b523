package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Storage: StorageConfig{
			DataPath: "/tmp/maple-data",
		},
		Maple: MapleConfig{
			DefaultTagValue:    "Papers",
			RecordingListLimit: 100,
		},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty environment", func(c *Config) { c.App.Environment = "" }},
		{"bogus environment", func(c *Config) { c.App.Environment = "dev" }},
		{"bogus log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"empty default tag", func(c *Config) { c.Maple.DefaultTagValue = "" }},
		{"zero recording limit", func(c *Config) { c.Maple.RecordingListLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/maple", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "maple"), expanded)

	expanded, err = expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", expanded)

	expanded, err = expandPath("/already/absolute", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/already/absolute", expanded)
}

func TestExpandAudioPathDefault(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{DataPath: "/srv/maple"},
	}
	require.NoError(t, cfg.expandAudioPath())
	assert.Equal(t, filepath.Join("/srv/maple", "audio"), cfg.Storage.AudioPath)
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("MAPLE_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "MAPLE_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "MAPLE_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "MAPLE_TEST_MISSING", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("MAPLE_TEST_INT", "42")
	t.Setenv("MAPLE_TEST_BAD_INT", "forty-two")

	assert.Equal(t, 42, getIntConfigValue("", "MAPLE_TEST_INT", 7))
	assert.Equal(t, 7, getIntConfigValue("", "MAPLE_TEST_BAD_INT", 7))
	assert.Equal(t, 7, getIntConfigValue("", "MAPLE_TEST_MISSING_INT", 7))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	content := "# Maple test env\nMAPLE_ENVFILE_A=hello\nMAPLE_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("MAPLE_ENVFILE_A", "")
	t.Setenv("MAPLE_ENVFILE_B", "")
	os.Unsetenv("MAPLE_ENVFILE_A")
	os.Unsetenv("MAPLE_ENVFILE_B")

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "hello", os.Getenv("MAPLE_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("MAPLE_ENVFILE_B"))
}

func TestLoadEnvFileMalformed(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("NOT A VALID LINE\n"), 0o600))

	assert.Error(t, loadEnvFile(envPath))
}
