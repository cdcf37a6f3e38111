package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterbook-dev/meterbook/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataFile = "data/readings.csv"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Git.AutoCommit = true
	cfg.Metrics = []model.Metric{{Key: model.ColumnElectricity, DisplayName: "Power", Unit: "kWh"}}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Storage, got.Storage)
	assert.Equal(t, cfg.Validation, got.Validation)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Git, got.Git)
	assert.Equal(t, cfg.Metrics, got.Metrics)
	assert.Equal(t, filepath.Dir(path), got.Dir)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "energy_data.csv", cfg.Storage.DataFile)
	assert.Equal(t, ';', cfg.Storage.DelimiterRune())
	assert.Equal(t, ",", cfg.Storage.DecimalSeparator)
	assert.Equal(t, 2000, cfg.Validation.MinYear)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Empty(t, cfg.Metrics)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  data_file: zaehler.csv\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "zaehler.csv", cfg.Storage.DataFile)
	assert.Equal(t, ";", cfg.Storage.Delimiter)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 2000, cfg.Validation.MinYear)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))
	t.Setenv("METERBOOK_STORAGE_DATA_FILE", "from-env.csv")
	t.Setenv("METERBOOK_VALIDATION_MIN_YEAR", "2010")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", cfg.Storage.DataFile)
	assert.Equal(t, 2010, cfg.Validation.MinYear)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, Default().Storage, cfg.Storage)
	assert.Equal(t, dir, cfg.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"delimiter too long", "storage:\n  delimiter: ';;'\n"},
		{"decimal separator equals delimiter", "storage:\n  decimal_separator: ';'\n"},
		{"delimiter equals decimal separator", "storage:\n  delimiter: ','\n"},
		{"unknown log level", "log:\n  level: loud\n"},
		{"metric without key", "metrics:\n  - display_name: Oil\n"},
		{"bad author email", "git:\n  author_email: nope\n"},
		{"min year too small", "validation:\n  min_year: 12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	cfg := Default()
	cfg.Dir = "/srv/meterbook"

	assert.Equal(t, "/srv/meterbook/energy_data.csv", cfg.Path(cfg.Storage.DataFile))
	assert.Equal(t, "/abs/file.csv", cfg.Path("/abs/file.csv"))
	assert.Empty(t, cfg.Path(""))
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "data_file: energy_data.csv")
	assert.Contains(t, contents, "min_year: 2000")
	assert.Contains(t, contents, "auto_commit: false")
	assert.NotContains(t, contents, "metrics:")
}

func TestNewLogger_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meterbook.log")

	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
