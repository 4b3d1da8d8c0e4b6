// The aggregator service consumes sensor events, folds them into per-hub
// snapshots and republishes every accepted update to the snapshot topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"github.com/Makar-FP/plus-smart-home-tech/internal/aggregator"
	"github.com/Makar-FP/plus-smart-home-tech/internal/api"
	"github.com/Makar-FP/plus-smart-home-tech/internal/config"
	"github.com/Makar-FP/plus-smart-home-tech/internal/kafkabus"
	"github.com/Makar-FP/plus-smart-home-tech/internal/logging"
	"github.com/Makar-FP/plus-smart-home-tech/internal/metrics"
)

func main() {
	logger, logFile := logging.Init("aggregator")
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.Register(reg)

	bus := kafkabus.New(cfg.Brokers, logger)
	if err := bus.EnsureTopics(ctx,
		kafka.TopicConfig{Topic: cfg.SensorTopic, NumPartitions: 3, ReplicationFactor: 1},
		kafka.TopicConfig{Topic: cfg.SnapshotTopic, NumPartitions: 3, ReplicationFactor: 1},
	); err != nil {
		logger.Warn("topic ensure failed", slog.Any("err", err))
	}

	reader := bus.Reader(cfg.SensorTopic, cfg.AggregatorGroup)
	writer := bus.Writer(cfg.SnapshotTopic, func(msgs []kafka.Message, err error) {
		if err != nil {
			m.PublishFailures.Add(float64(len(msgs)))
			logger.Error("snapshot delivery failed", slog.Int("messages", len(msgs)), slog.Any("err", err))
		}
	})

	store := aggregator.NewSnapshotStore()
	agg := aggregator.New(aggregator.Config{
		PollTimeout:    cfg.PollTimeout,
		MaxPollRecords: cfg.MaxPollRecords,
		CommitEvery:    cfg.CommitEvery,
	}, store, reader, writer, m, logger)

	srv := &http.Server{
		Addr:    cfg.AggregatorHTTPAddr,
		Handler: handlers.LoggingHandler(os.Stdout, api.NewAggregatorRouter(store, metrics.Handler(reg))),
	}
	go func() {
		logger.Info("http api listening", slog.String("addr", cfg.AggregatorHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("err", err))
		}
	}()

	if err := agg.Run(ctx); err != nil {
		logger.Error("aggregator exited with error", slog.Any("err", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("err", err))
	}
}
