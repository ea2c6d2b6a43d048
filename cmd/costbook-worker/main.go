package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"costbook/internal/amqp"
	"costbook/internal/backend"
	"costbook/internal/cli"
	"costbook/internal/config"
	"costbook/internal/log"
	"costbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}
	logger.Info("Starting costbook-worker", "backend", cfg.DataBackend, "queue", cfg.AMQPQueue)

	db, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(db, logger).CreateRemote(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create remote store: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, client)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		}
		return nil
	})
	return g.Wait()
}
