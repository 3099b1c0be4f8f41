package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "courtyard", cfg.Scenario)
	assert.Equal(t, 0, cfg.Ticks)
	assert.InDelta(t, 1.0/60.0, cfg.DeltaTime, 1e-12)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, "", cfg.Journal.Path)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "prefabs", cfg.Prefabs)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	body := `
scenario: armory
ticks: 600
seed: 42
alertMode: queued
log:
  level: debug
  json: true
journal:
  path: run.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guardsim.yaml"), []byte(body), 0o644))

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "armory", cfg.Scenario)
	assert.Equal(t, 600, cfg.Ticks)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "queued", cfg.AlertMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "run.db", cfg.Journal.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GUARDSIM_LOG_LEVEL", "warn")
	t.Setenv("GUARDSIM_SCENARIO", "interrogation")

	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "interrogation", cfg.Scenario)
}

func TestLoad_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guardsim.yaml"), []byte("ticks: [1, 2"), 0o644))

	_, err := Load(viper.New(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{Scenario: "courtyard", DeltaTime: 0.1}
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"queued", func(c *Config) { c.AlertMode = "queued" }, true},
		{"empty scenario", func(c *Config) { c.Scenario = "" }, false},
		{"negative ticks", func(c *Config) { c.Ticks = -1 }, false},
		{"zero dt", func(c *Config) { c.DeltaTime = 0 }, false},
		{"bad alert mode", func(c *Config) { c.AlertMode = "broadcast" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
