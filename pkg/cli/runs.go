package cli

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/yasi-python/abtest/pkg/report"
	"github.com/yasi-python/abtest/pkg/storage"
)

const limitFlagName = "limit"

// RunsCommand groups the history subcommands.
func RunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "inspect stored analysis runs",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "abtest runs list [--limit 20]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: limitFlagName, Value: 20, Usage: "newest runs to show; 0 for all"},
				},
				Action: withStore(listRuns),
			},
			{
				Name:      "show",
				Usage:     "print the reports of one run",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: jsonFlagName, Usage: "print the run as JSON"}},
				Action:    withStore(showRun),
			},
			{
				Name:      "delete",
				Usage:     "remove one run",
				ArgsUsage: "<id>",
				Action:    withStore(deleteRun),
			},
		},
	}
}

func withStore(f func(*cli.Context, *storage.DB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return cli.Exit("config_load_error: "+err.Error(), 2)
		}
		db, err := openStore(cfg)
		if err != nil {
			return cli.Exit("storage: "+err.Error(), 2)
		}
		defer db.Close()
		return f(c, db)
	}
}

func listRuns(c *cli.Context, db *storage.DB) error {
	runs, err := db.ListRuns(c.Int(limitFlagName))
	if err != nil {
		return err
	}
	t := tablewriter.NewWriter(c.App.Writer)
	t.SetHeader([]string{"id", "created", "metrics", "control", "test"})
	t.SetAutoWrapText(false)
	for _, r := range runs {
		t.Append([]string{
			r.ID,
			time.Unix(r.CreatedUnix, 0).UTC().Format(time.RFC3339),
			fmt.Sprint(len(r.Reports)),
			r.Control,
			r.Test,
		})
	}
	t.Render()
	return nil
}

func runID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("expected exactly one run id", 2)
	}
	return c.Args().First(), nil
}

func showRun(c *cli.Context, db *storage.DB) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	run, err := db.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		return cli.Exit(err.Error(), 1)
	}
	if err != nil {
		return err
	}
	if c.Bool(jsonFlagName) {
		return report.WriteJSON(c.App.Writer, run)
	}
	fmt.Fprintf(c.App.Writer, "Run %s  control: %s  test: %s\n", run.ID, run.Control, run.Test)
	for _, r := range run.Reports {
		if err := report.WriteText(c.App.Writer, r); err != nil {
			return err
		}
	}
	return nil
}

func deleteRun(c *cli.Context, db *storage.DB) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	if err := db.DeleteRun(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
	return nil
}
