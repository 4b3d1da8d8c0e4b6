// The analyzer service runs two consumer loops: the registrar applies hub
// structural events to the registry on a background goroutine, while the
// evaluator consumes snapshots on the main one and dispatches device actions
// for firing scenarios.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"github.com/Makar-FP/plus-smart-home-tech/internal/api"
	"github.com/Makar-FP/plus-smart-home-tech/internal/config"
	"github.com/Makar-FP/plus-smart-home-tech/internal/evaluator"
	"github.com/Makar-FP/plus-smart-home-tech/internal/kafkabus"
	"github.com/Makar-FP/plus-smart-home-tech/internal/logging"
	"github.com/Makar-FP/plus-smart-home-tech/internal/metrics"
	"github.com/Makar-FP/plus-smart-home-tech/internal/registrar"
	"github.com/Makar-FP/plus-smart-home-tech/internal/registry"
)

func main() {
	logger, logFile := logging.Init("analyzer")
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
		kafka.TopicConfig{Topic: cfg.HubTopic, NumPartitions: 1, ReplicationFactor: 1},
		kafka.TopicConfig{Topic: cfg.SnapshotTopic, NumPartitions: 3, ReplicationFactor: 1},
	); err != nil {
		logger.Warn("topic ensure failed", slog.Any("err", err))
	}

	store := registry.NewMemory()

	hubRegistrar := registrar.New(registrar.Config{
		PollTimeout:    cfg.PollTimeout,
		MaxPollRecords: cfg.MaxPollRecords,
	}, bus.Reader(cfg.HubTopic, cfg.HubGroup), store, store, m, logger)

	dispatcher := evaluator.NewHubRouterClient(cfg.HubRouterURL, cfg.DispatchTimeout, logger)
	eval := evaluator.New(evaluator.Config{
		PollTimeout:    cfg.PollTimeout,
		MaxPollRecords: cfg.MaxPollRecords,
	}, bus.Reader(cfg.SnapshotTopic, cfg.SnapshotGroup), store, store, dispatcher, m, logger)

	srv := &http.Server{
		Addr:    cfg.AnalyzerHTTPAddr,
		Handler: handlers.LoggingHandler(os.Stdout, api.NewAnalyzerRouter(store, store, metrics.Handler(reg))),
	}
	go func() {
		logger.Info("http api listening", slog.String("addr", cfg.AnalyzerHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("err", err))
		}
	}()

	// One loop failing does not take the other down; shutdown is coordinated
	// through the signal context only.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hubRegistrar.Run(ctx); err != nil {
			logger.Error("registrar exited with error", slog.Any("err", err))
		}
	}()

	if err := eval.Run(ctx); err != nil {
		logger.Error("evaluator exited with error", slog.Any("err", err))
	}
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("err", err))
	}
}
