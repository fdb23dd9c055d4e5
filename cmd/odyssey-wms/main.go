package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/demo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	rt := app.NewRuntime(cfg, logger, app.Options{})

	if !cfg.DemoSeed {
		logger.Info("demo seed disabled, nothing to run")
		return
	}

	seeded, err := demo.Seed(ctx, rt)
	if err != nil {
		logger.Error("seed demo data", slog.Any("error", err))
		os.Exit(1)
	}
	report, err := demo.Run(ctx, rt, seeded)
	if err != nil {
		logger.Error("run scenario", slog.Any("error", err))
		os.Exit(1)
	}

	out := newPrinter(os.Stdout)
	out.steps(report)
	if err := out.items(ctx, rt); err != nil {
		logger.Error("print items", slog.Any("error", err))
		os.Exit(1)
	}
	out.counts(rt)
	if err := out.journal(ctx, rt); err != nil {
		logger.Error("print journal", slog.Any("error", err))
		os.Exit(1)
	}
	if err := out.metrics(rt); err != nil {
		logger.Error("print metrics", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.MetricsDump {
		if err := rt.Metrics.WriteText(os.Stdout); err != nil {
			logger.Error("dump metrics", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
