package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  http_listen: ":9090"
analysis:
  metric: Earning
input:
  control: data/control.csv
  test: https://example.org/test.csv
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Service.HTTPListen)
	assert.Equal(t, "/metrics", c.Service.MetricsPath)
	assert.Equal(t, "Earning", c.Analysis.Metric)
	assert.Equal(t, 0.05, c.Analysis.Alpha)
	assert.Equal(t, "control", c.Analysis.ControlLabel)
	assert.Equal(t, "test", c.Analysis.TestLabel)
	assert.Equal(t, "https://example.org/test.csv", c.Input.Test)
	assert.NoError(t, c.Validate())
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [\n"), 0o600))
	_, err := LoadOrDefault(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"alpha negative": func(c *Config) { c.Analysis.Alpha = -1 },
		"alpha one":      func(c *Config) { c.Analysis.Alpha = 1 },
		"same labels":    func(c *Config) { c.Analysis.TestLabel = c.Analysis.ControlLabel },
		"empty metric":   func(c *Config) { c.Analysis.Metric = "" },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
