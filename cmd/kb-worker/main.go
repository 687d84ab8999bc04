// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"github.com/northbound-system/kb-ingest/internal/app"
	"github.com/northbound-system/kb-ingest/internal/config"
	"github.com/northbound-system/kb-ingest/internal/httpclient"
	"github.com/northbound-system/kb-ingest/internal/logger"
	"github.com/northbound-system/kb-ingest/internal/orchestrator"
	"github.com/northbound-system/kb-ingest/internal/queue"
	"github.com/northbound-system/kb-ingest/internal/source"
	"github.com/northbound-system/kb-ingest/internal/worker"
)

var (
	configPath  = flag.String("config", "./config.yaml", "Path to YAML configuration file")
	dbPath      = flag.String("db-path", "./kb-ingest.db", "SQLite metadata database path")
	workerCount = flag.Int("worker-count", 5, "Number of background ingestion workers")
)

const downloadTimeout = 5 * time.Minute

func main() {
	logFile := "kb-worker.log"
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

	httpClient, err := httpclient.New(cfg.Proxy, downloadTimeout)
	if err != nil {
		logger.Fatalf("failed to build scoped http client: %v", err)
	}
	readerFactory := func(url string) source.Reader {
		return source.NewHTTPReader(url, httpClient)
	}

	handler := func(ctx context.Context, job queue.Job) error {
		payload, err := orchestrator.DecodePayload(job)
		if err != nil {
			logger.Errorf("kb-worker: failed to decode job payload: %v", err)
			return err
		}

		kb, err := metadataStore.GetKnowledgeBase(payload.KnowledgeBaseID)
		if err != nil {
			logger.Errorf("kb-worker: unknown knowledge base %s: %v", payload.KnowledgeBaseID, err)
			return err
		}

		embedder, err := embeddings.Embedder(kb.EmbeddingModel)
		if err != nil {
			logger.Errorf("kb-worker: failed to resolve embedder for %s: %v", kb.EmbeddingModel, err)
			return err
		}

		store, err := resolver(kb)
		if err != nil {
			logger.Errorf("kb-worker: failed to resolve vector store for kb %s: %v", kb.ID, err)
			return err
		}

		deps := orchestrator.Dependencies{
			Store:             metadataStore,
			VectorStore:       store,
			Embedder:          embedder,
			Dimension:         kb.Dimension,
			HTTPReaderFactory: readerFactory,
		}
		return orchestrator.Run(ctx, deps, payload)
	}

	logger.Printf("starting %d ingestion workers", *workerCount)
	if err := worker.StartWorkers(ctx, jobQueue, handler, *workerCount); err != nil {
		logger.Errorf("worker error: %v", err)
	}
}
