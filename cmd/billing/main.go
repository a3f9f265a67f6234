package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"gst-billing/internal/adapters/cli"
	"gst-billing/internal/app"
	"gst-billing/internal/config"
	"gst-billing/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var closeSvc func()
	open := func() (app.ApplicationService, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log := logger.New(cfg.Log.Level, cfg.Log.Format)
		svc, closeFn, err := app.Open(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		closeSvc = closeFn
		return svc, nil
	}

	err := cli.NewRootCommand(open).ExecuteContext(ctx)
	if closeSvc != nil {
		closeSvc()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
