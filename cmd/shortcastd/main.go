package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"shortcast/internal/config"
	"shortcast/internal/daemon"
	"shortcast/internal/generation"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/notify"
	"shortcast/internal/preflight"
	"shortcast/internal/publish"
	"shortcast/internal/uploadqueue"
	"shortcast/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, result := range preflight.RunAll(ctx, cfg) {
		if !result.Passed {
			logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}
	queue := uploadqueue.NewStore(cfg.QueueFilePath(), logger)

	generator, err := generation.NewClient(cfg, logger)
	if err != nil {
		logger.Error("init generation client", logging.Error(err))
		return
	}
	publisher, err := publish.NewClient(cfg, logger)
	if err != nil {
		logger.Error("init publish client", logging.Error(err))
		return
	}
	notifier := notify.NewService(cfg, logger)

	manager := workflow.NewManager(cfg, store, queue, generator, publisher, notifier, logger)

	d, err := daemon.New(cfg, store, queue, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shortcastd shutting down")
}
