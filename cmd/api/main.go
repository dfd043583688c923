package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/api"
	"github.com/AstraLink99/backend-video-processing/internal/infra/config"
	"github.com/AstraLink99/backend-video-processing/internal/infra/rabbitmq"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
	"github.com/AstraLink99/backend-video-processing/internal/infra/tracing"
	"github.com/AstraLink99/backend-video-processing/internal/notify"
	"github.com/AstraLink99/backend-video-processing/internal/store"
	"github.com/AstraLink99/backend-video-processing/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting ingestion api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "video-ingestion-api")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	content, err := storage.NewContentStore(cfg.StorageDir)
	fatalOnErr(err, "create content store")

	// Broker connection failure is the one startup error that aborts
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	jobPub := rabbitmq.NewJobPublisher(pub)

	records := store.NewMetadataStore()
	registry := notify.NewRegistry(time.Duration(cfg.WSPingIntervalSec)*time.Second, log)

	handlers := api.NewHandlers(records, registry, jobPub, content, api.HandlersConfig{
		DefaultClientID: cfg.DefaultClientID,
		MaxUploadMB:     cfg.MaxUploadMB,
	}, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewRouter(handlers, content.Root()),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	go func() {
		log.Info("http server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Info("ingestion api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
