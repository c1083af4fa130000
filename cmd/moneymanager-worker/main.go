package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/amqp"
	"moneymanager/internal/backend"
	"moneymanager/internal/cli"
	applog "moneymanager/internal/log"
	"moneymanager/internal/services"
	gsheet "moneymanager/internal/sheets/google"
	"moneymanager/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, true)
	logger.Info("Starting moneymanager-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// The worker consumes from the queue and never publishes.
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	if res.Tracker == nil {
		logger.Error("Data backend does not track sync state", "backend", bcfg.Type)
		os.Exit(1)
	}

	ledger, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	syncWorker := worker.NewSyncWorker(res.Repository, res.Tracker, ledger, cfg.SyncBatchSize)
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	procCfg := services.DefaultSyncProcessorConfig()
	procCfg.PollInterval = cfg.SyncInterval
	procCfg.BatchSize = cfg.SyncBatchSize
	processor := services.NewSyncProcessor(res.Repository, res.Tracker, ledger, procCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeMessages(gctx, syncWorker.HandleMessage)
	})
	g.Go(func() error {
		return processor.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
