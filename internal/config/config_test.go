package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) *pflag.FlagSet {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))
	return fs
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	resetViper(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FILES_PATH", "/tmp/files")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("DATABASE_URL", "file:catalog.db")
	t.Setenv("FILES_PATH", "/tmp/files")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file:catalog.db", cfg.DatabaseURL)
	assert.Equal(t, "/tmp/files", cfg.FilesPath)
	assert.EqualValues(t, 1000, cfg.Uid)
}

func TestLoadFlagOverridesDefault(t *testing.T) {
	fs := resetViper(t)
	t.Setenv("DATABASE_URL", "file:catalog.db")
	t.Setenv("FILES_PATH", "/tmp/files")
	require.NoError(t, fs.Set("uid", "2000"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.EqualValues(t, 2000, cfg.Uid)
}

func TestLoadRejectsInvalidLogFilter(t *testing.T) {
	fs := resetViper(t)
	t.Setenv("DATABASE_URL", "file:catalog.db")
	t.Setenv("FILES_PATH", "/tmp/files")
	require.NoError(t, fs.Set("log-filter", "verbose"))

	_, err := Load()
	assert.Error(t, err)
}
