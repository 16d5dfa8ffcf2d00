package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"studyrag/backend/internal/adapter/redisbus"
	wstore "studyrag/backend/internal/adapter/weaviate"
	"studyrag/backend/internal/app"
	"studyrag/backend/internal/config"
	"studyrag/backend/internal/logger"
)

func main() {
	slog.SetDefault(slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	vecStore := wstore.NewStore(deps.Weaviate)
	bus := redisbus.NewBus(deps.Redis)

	application, err := app.New(cfg, deps.DB, deps.Genai, vecStore, bus, deps.NSQProducer)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if cfg.EnableWorker {
		nsqCfg := nsq.NewConfig()
		nsqCfg.MaxAttempts = uint16(cfg.JobMaxAttempts)
		nsqCfg.MaxInFlight = cfg.WorkerConcurrency

		consumer, err := nsq.NewConsumer(config.TopicEmbedding, config.ChannelWorker, nsqCfg)
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddConcurrentHandlers(application.EmbedConsumer, cfg.WorkerConcurrency)

		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
			os.Exit(1)
		}
		slog.Info("embedding worker connected", "topic", config.TopicEmbedding, "concurrency", cfg.WorkerConcurrency)
		defer consumer.Stop()
	}

	if !cfg.EnableAPI {
		slog.Info("api disabled, running worker only")
		<-ctx.Done()
		return
	}

	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
