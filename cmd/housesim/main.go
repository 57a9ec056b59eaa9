package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/housesim/cmd/app"
	"github.com/Agrid-Dev/housesim/internal/status"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json/.toml)")
	flag.BoolVar(&serve, "serve", false, "keep the status controllers running after the batch finishes")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		slog.Error("config", "err", err)
		return 2
	}
	log := cfg.Logger()
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracker := status.New()
	runners, err := app.Controllers(cfg, tracker)
	if err != nil {
		log.Error("controllers", "err", err)
		return 2
	}
	batch, err := app.NewBatch(cfg, tracker, log)
	if err != nil {
		log.Error("batch", "err", err)
		return 2
	}

	g, gctx := errgroup.WithContext(ctx)
	ctrlCtx, stopControllers := context.WithCancel(gctx)
	defer stopControllers()

	for _, r := range runners {
		g.Go(func() error {
			if err := r.Run(ctrlCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	var batchErr error
	g.Go(func() error {
		batchErr = batch.Run(gctx)
		if !serve {
			stopControllers()
		} else if batchErr == nil || errors.Is(batchErr, app.ErrBatchFailed) {
			log.Info("batch done, serving status until interrupted")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("controller exited", "err", err)
		return 1
	}
	if batchErr != nil {
		if !errors.Is(batchErr, context.Canceled) {
			log.Error("batch", "err", batchErr)
		}
		return 1
	}
	return 0
}
