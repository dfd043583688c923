package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/infra/callback"
	"github.com/AstraLink99/backend-video-processing/internal/infra/config"
	"github.com/AstraLink99/backend-video-processing/internal/infra/ffmpeg"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
	"github.com/AstraLink99/backend-video-processing/internal/infra/rabbitmq"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
	"github.com/AstraLink99/backend-video-processing/internal/infra/tracing"
	"github.com/AstraLink99/backend-video-processing/internal/usecase"
	"github.com/AstraLink99/backend-video-processing/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting enhancement worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "video-enhancement-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	content, err := storage.NewContentStore(cfg.StorageDir)
	fatalOnErr(err, "create content store")

	reporter := callback.NewClient(
		cfg.APIBaseURL,
		cfg.CallbackMaxRetries,
		time.Duration(cfg.CallbackBaseDelayMs)*time.Millisecond,
		log,
	)
	enhancer := ffmpeg.NewEnhancer(cfg.FFmpegTargetFPS, log)

	uc := usecase.NewEnhanceVideoUseCase(enhancer, reporter, content, log)

	metricsSrv := metrics.StartServer(ctx, cfg.MetricsPort, log)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Exchange:    cfg.RabbitMQExchange,
		Queue:       cfg.RabbitMQEnhancementQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("enhancement worker started, consuming jobs")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("enhancement worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
