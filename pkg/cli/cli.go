// Package cli wires the abtest commands: analyze, serve, runs and
// config-test.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yasi-python/abtest/pkg/config"
	"github.com/yasi-python/abtest/pkg/logger"
	"github.com/yasi-python/abtest/pkg/storage"
)

const (
	configFlagName = "config"
	dbFile         = "runs.bolt"
)

var configFlag = &cli.StringFlag{
	Name:    configFlagName,
	Value:   "config.yaml",
	Usage:   "path to the YAML config; a missing file means defaults",
	EnvVars: []string{"ABTEST_CONFIG"},
}

// App builds the abtest application. Results go to stdout, logs to stderr.
func App(stdout, stderr io.Writer) *cli.App {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &cli.App{
		Name:        "abtest",
		Usage:       "compare two bidding strategies with a two-sample hypothesis test",
		Description: "abtest checks normality and variance homogeneity, picks a t-test or Mann-Whitney U and reports whether the groups differ.",
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags:       []cli.Flag{configFlag},
		Commands: []*cli.Command{
			AnalyzeCommand(),
			ServeCommand(),
			RunsCommand(),
			ConfigTestCommand(),
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.LoadOrDefault(c.String(configFlagName))
}

func newLogger(c *cli.Context, cfg *config.Config) *logger.Logger {
	return logger.NewWriter(cfg.Service.LogLevel, c.App.ErrWriter)
}

func openStore(cfg *config.Config) (*storage.DB, error) {
	return storage.Open(filepath.Join(cfg.Service.DataDir, dbFile))
}

// ConfigTestCommand loads and validates the config file.
func ConfigTestCommand() *cli.Command {
	return &cli.Command{
		Name:  "config-test",
		Usage: "validate the config file",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit("config_load_error: "+err.Error(), 2)
			}
			if err := cfg.Validate(); err != nil {
				return cli.Exit("config_invalid: "+err.Error(), 2)
			}
			_, err = io.WriteString(c.App.Writer, "config ok\n")
			return err
		},
	}
}
