package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/notify"
	"clipforge/internal/transcode"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
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

	store, err := library.Open(cfg)
	if err != nil {
		logger.Error("open media library", logging.Error(err))
		return
	}

	hub := notify.NewHub(cfg.Notify.SubscriberBuffer)
	pipeline := transcode.NewPipeline(cfg, store, hub, logger)
	scheduler := transcode.NewScheduler(pipeline, logger, cfg.Transcode.Workers, cfg.Transcode.QueueSize)

	d, err := daemon.New(cfg, store, hub, scheduler, logger)
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
	logger.Info("clipforged shutting down")
}
