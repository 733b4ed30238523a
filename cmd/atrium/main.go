package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atriumhq/atrium/adapter/cli"
	"github.com/atriumhq/atrium/internal/app"
	"github.com/atriumhq/atrium/pkg/config"
	"github.com/atriumhq/atrium/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		// Local runs work without a .env file.
		logger.Warn("config not loaded, using development defaults", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	if cfg.IsDevelopment() {
		logCfg := observability.DefaultLogConfig()
		logCfg.Level = observability.LogLevelDebug
		logCfg.ServiceVersion = cli.Version
		logger = observability.NewLogger(logCfg)
	}
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	switch {
	case err != nil && cfg.IsDevelopment():
		// The CLI can still answer version, help, and catalog queries
		// without a state store.
		logger.Warn("container not initialized, running in limited mode", "error", err)
	case err != nil:
		logger.Error("container initialization failed", "error", err)
		os.Exit(1)
	default:
		defer container.Close()

		cliApp := cli.NewApp(
			container.Store,
			container.StateRepo,
			container.StateStore,
			container.Extensions,
			container.Catalog,
		)
		cliApp.SetServing(
			container.EventPublisher,
			container.Health,
			container.Metrics,
			cfg.HTTPAddr,
		)
		cli.SetApp(cliApp)
	}

	cli.Execute(ctx)
}
