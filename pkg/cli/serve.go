package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/api"
	"github.com/yasi-python/abtest/pkg/metrics"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "abtest serve",
		Description: "serve exposes analyze and the run history over HTTP, plus health and Prometheus metrics.",
		Action:      serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit("config_load_error: "+err.Error(), 2)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit("config_invalid: "+err.Error(), 2)
	}
	log := newLogger(c, cfg)
	defer log.Sync()
	metrics.MustRegister()

	db, err := openStore(cfg)
	if err != nil {
		log.Error("db_open", "err", err.Error())
		return cli.Exit("storage: "+err.Error(), 2)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := api.New(db, analysis.ConfigFrom(cfg.Analysis), log, cfg.Service.MetricsPath, cfg.Service.HealthzPath)
	log.Info("server_start", "listen", cfg.Service.HTTPListen, "data_dir", cfg.Service.DataDir)
	if err := srv.Start(ctx, cfg.Service.HTTPListen); err != nil {
		log.Error("server_stopped", "err", err.Error())
		return cli.Exit(err.Error(), 1)
	}
	log.Info("server_stopped")
	return nil
}
