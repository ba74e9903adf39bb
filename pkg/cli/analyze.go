package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/dataset"
	"github.com/yasi-python/abtest/pkg/metrics"
	"github.com/yasi-python/abtest/pkg/report"
	"github.com/yasi-python/abtest/pkg/storage"
)

const (
	controlFlagName    = "control"
	testFlagName       = "test"
	metricFlagName     = "metric"
	alphaFlagName      = "alpha"
	allMetricsFlagName = "all-metrics"
	describeFlagName   = "describe"
	jsonFlagName       = "json"
	saveFlagName       = "save"
)

// analyzeCmd holds the flag values of the analyze subcommand. Empty values
// fall back to the config file.
type analyzeCmd struct {
	control    string
	test       string
	metric     string
	alpha      float64
	allMetrics bool
	describe   bool
	json       bool
	save       bool

	loader dataset.Loader
}

func AnalyzeCommand() *cli.Command {
	cmd := &analyzeCmd{loader: dataset.NewLoader()}
	return &cli.Command{
		Name:        "analyze",
		Usage:       "abtest analyze --control control.csv --test test.csv [--metric Purchase]",
		Description: "analyze runs normality, variance and comparison tests on one metric or all of them.",
		Flags:       cmd.flags(),
		Action:      cmd.action,
	}
}

func (cmd *analyzeCmd) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: controlFlagName, Usage: "control group CSV (path or http(s) URL)", Destination: &cmd.control},
		&cli.StringFlag{Name: testFlagName, Usage: "test group CSV (path or http(s) URL)", Destination: &cmd.test},
		&cli.StringFlag{Name: metricFlagName, Usage: "column to compare", Destination: &cmd.metric},
		&cli.Float64Flag{Name: alphaFlagName, Usage: "significance level", Destination: &cmd.alpha},
		&cli.BoolFlag{Name: allMetricsFlagName, Usage: "analyse every column", Destination: &cmd.allMetrics},
		&cli.BoolFlag{Name: describeFlagName, Usage: "print descriptive statistics and rates first", Destination: &cmd.describe},
		&cli.BoolFlag{Name: jsonFlagName, Usage: "print reports as JSON", Destination: &cmd.json},
		&cli.BoolFlag{Name: saveFlagName, Usage: "store the run in the history database", Destination: &cmd.save},
	}
}

func (cmd *analyzeCmd) action(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit("config_load_error: "+err.Error(), 2)
	}
	log := newLogger(c, cfg)
	defer log.Sync()
	metrics.MustRegister()

	acfg := analysis.ConfigFrom(cfg.Analysis)
	if cmd.metric != "" {
		acfg.Metric = dataset.CanonicalField(cmd.metric)
	}
	if c.IsSet(alphaFlagName) {
		acfg.Alpha = cmd.alpha
	}
	controlLoc, testLoc := pick(cmd.control, cfg.Input.Control), pick(cmd.test, cfg.Input.Test)
	if controlLoc == "" || testLoc == "" {
		return cli.Exit("both --control and --test are required (or input.control / input.test in the config)", 2)
	}
	if err := acfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	var control, test dataset.Group
	g, gctx := errgroup.WithContext(c.Context)
	g.Go(func() (err error) {
		control, err = cmd.loader.Load(gctx, controlLoc, acfg.ControlLabel)
		return err
	})
	g.Go(func() (err error) {
		test, err = cmd.loader.Load(gctx, testLoc, acfg.TestLabel)
		return err
	})
	if err := g.Wait(); err != nil {
		return cli.Exit("load: "+err.Error(), 1)
	}
	table, err := dataset.Combine(test, control)
	if err != nil {
		return cli.Exit("combine: "+err.Error(), 1)
	}
	log.Info("datasets_loaded", "control_rows", control.Len(), "test_rows", test.Len())

	out := c.App.Writer
	if cmd.describe && !cmd.json {
		if err := writeDescribe(c, table, acfg); err != nil {
			return err
		}
	}

	an := analysis.New(log)
	var reports []*analysis.Report
	if cmd.allMetrics || cfg.Analysis.AllMetrics {
		reports, err = an.RunAll(c.Context, acfg, table, table.Fields)
	} else {
		var r *analysis.Report
		r, err = an.Run(c.Context, acfg, table)
		reports = []*analysis.Report{r}
	}
	if err != nil {
		return cli.Exit(haltMessage(err), 1)
	}

	if cmd.json {
		if err := report.WriteJSON(out, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if err := report.WriteText(out, r); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		if len(reports) > 1 {
			report.WriteSummary(out, reports)
		}
	}

	if cmd.save {
		db, err := openStore(cfg)
		if err != nil {
			return cli.Exit("storage: "+err.Error(), 1)
		}
		defer db.Close()
		run := storage.NewRun(controlLoc, testLoc, acfg, reports)
		if err := db.PutRun(run); err != nil {
			return cli.Exit("storage: "+err.Error(), 1)
		}
		metrics.RunsStored.Inc()
		log.Info("run_saved", "id", run.ID)
		fmt.Fprintf(c.App.ErrWriter, "saved run %s\n", run.ID)
	}
	return nil
}

func writeDescribe(c *cli.Context, table *dataset.UnifiedTable, acfg analysis.Config) error {
	out := c.App.Writer
	for _, label := range []string{acfg.ControlLabel, acfg.TestLabel} {
		fs, err := analysis.Describe(table, label)
		if err != nil {
			return err
		}
		report.WriteDescribe(out, label, fs)
	}
	rates, err := analysis.Rates(table, []string{acfg.ControlLabel, acfg.TestLabel}, acfg.Alpha)
	if err != nil {
		return err
	}
	if len(rates) > 0 {
		report.WriteRates(out, rates)
	}
	fmt.Fprintln(out)
	return nil
}

// haltMessage names the stage the pipeline stopped at.
func haltMessage(err error) string {
	var se *analysis.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("analysis halted at stage %s: %v", se.Stage, err)
	}
	return "analysis failed: " + err.Error()
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
