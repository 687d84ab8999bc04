// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/northbound-system/kb-ingest/internal/app"
	"github.com/northbound-system/kb-ingest/internal/config"
	"github.com/northbound-system/kb-ingest/internal/httpapi"
	"github.com/northbound-system/kb-ingest/internal/logger"
	"github.com/northbound-system/kb-ingest/internal/query"
	"github.com/northbound-system/kb-ingest/internal/queue"
)

var (
	configPath = flag.String("config", "./config.yaml", "Path to YAML configuration file")
	dbPath     = flag.String("db-path", "./kb-ingest.db", "SQLite metadata database path")
)

func main() {
	logFile := "kb-server.log"
	if _, err := logger.Init(logFile); err != nil {
		logger.Printf("failed to initialize logger: %v, using stdout only", err)
	}

	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env file found, using environment variables: %v", err)
	}

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}

	metadataStore, err := app.OpenMetadataStore(*dbPath)
	if err != nil {
		logger.Fatalf("failed to open metadata store: %v", err)
	}

	embeddings := app.NewEmbeddingRegistry(cfg.Embeddings)

	ctx := context.Background()
	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}

	jobQueue, err := queue.NewRedisQueue(redisClient, cfg.Redis.QueueKey)
	if err != nil {
		logger.Fatalf("failed to create job queue: %v", err)
	}

	resolver := app.NewVectorStoreResolver(cfg.Vector, redisClient)
	facade := query.New(metadataStore, embeddings, resolver)

	mux := httpapi.NewMux(httpapi.Dependencies{
		Metadata:   metadataStore,
		Facade:     facade,
		Embeddings: embeddings,
		Queue:      jobQueue,
		Resolve:    resolver,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		logger.Printf("HTTP server listening on %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	logger.Println("shutting down kb-server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
}
