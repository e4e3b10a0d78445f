package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"strokerisk/config"
	shttp "strokerisk/http"
	"strokerisk/logging"
	"strokerisk/ml"
	"strokerisk/monitoring"
	"strokerisk/stroke"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 2. Load artifacts
	paths := cfg.ArtifactPaths()
	artifacts, err := stroke.LoadArtifacts(paths)
	if err != nil {
		logger.Fatal("failed to load artifacts", zap.Error(err), zap.String("dir", cfg.Artifacts.Dir))
	}
	logger.Info("artifacts loaded",
		zap.String("dir", cfg.Artifacts.Dir),
		zap.String("model_type", artifacts.ModelType),
		zap.Strings("feature_order", stroke.FeatureOrder()))

	metrics := monitoring.NewMetricsCollector()
	predictor, err := stroke.NewPredictor(artifacts,
		stroke.WithCache(cfg.Predictor.CacheSize),
		stroke.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("failed to create predictor", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Artifacts.Watch {
		watcher := ml.NewWatcher(cfg.Artifacts.Dir, cfg.Artifacts.WatchDebounce, func() error {
			return predictor.Reload(paths)
		}, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	// 3. Start HTTP server
	server := shttp.NewServer(shttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, shttp.NewHandler(predictor, metrics), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
