package config

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ServiceCfg struct {
	HTTPListen  string `yaml:"http_listen"`
	MetricsPath string `yaml:"metrics_path"`
	HealthzPath string `yaml:"healthz_path"`
	LogLevel    string `yaml:"log_level"`
	DataDir     string `yaml:"data_dir"`
}

type AnalysisCfg struct {
	Metric       string  `yaml:"metric"`
	Alpha        float64 `yaml:"alpha"`
	ControlLabel string  `yaml:"control_label"`
	TestLabel    string  `yaml:"test_label"`
	AllMetrics   bool    `yaml:"all_metrics"`
}

// InputCfg holds dataset locations: file paths or http(s) URLs of CSV exports.
type InputCfg struct {
	Control string `yaml:"control"`
	Test    string `yaml:"test"`
}

type Config struct {
	Service  ServiceCfg  `yaml:"service"`
	Analysis AnalysisCfg `yaml:"analysis"`
	Input    InputCfg    `yaml:"input"`
}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Service.HTTPListen == "" {
		c.Service.HTTPListen = ":8080"
	}
	if c.Service.MetricsPath == "" {
		c.Service.MetricsPath = "/metrics"
	}
	if c.Service.HealthzPath == "" {
		c.Service.HealthzPath = "/healthz"
	}
	if c.Service.LogLevel == "" {
		c.Service.LogLevel = "info"
	}
	if c.Service.DataDir == "" {
		c.Service.DataDir = "./data"
	}
	if c.Analysis.Metric == "" {
		c.Analysis.Metric = "Purchase"
	}
	if c.Analysis.Alpha == 0 {
		c.Analysis.Alpha = 0.05
	}
	if c.Analysis.ControlLabel == "" {
		c.Analysis.ControlLabel = "control"
	}
	if c.Analysis.TestLabel == "" {
		c.Analysis.TestLabel = "test"
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	c.applyDefaults()
	return &c, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

func (c *Config) Validate() error {
	a := c.Analysis
	if !(a.Alpha > 0 && a.Alpha < 1) {
		return errors.Errorf("analysis.alpha must be in (0, 1), got %v", a.Alpha)
	}
	if a.ControlLabel == a.TestLabel {
		return errors.Errorf("analysis.control_label and analysis.test_label must differ, both are %q", a.ControlLabel)
	}
	if a.Metric == "" {
		return errors.New("analysis.metric is empty")
	}
	return nil
}
