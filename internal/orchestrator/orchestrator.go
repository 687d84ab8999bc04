// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package orchestrator drives the ingestion pipeline behind a single
// worker-process consumer loop, generalizing the teacher's
// worker.HandlerFunc over queue.Job into the three dispatch modes (single
// file, ZIP, object-store prefix) and the per-document extract/split/
// embed/upsert pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/northbound-system/kb-ingest/internal/extractor"
	"github.com/northbound-system/kb-ingest/internal/logger"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/queue"
	"github.com/northbound-system/kb-ingest/internal/source"
	"github.com/northbound-system/kb-ingest/internal/splitter"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

// Payload is the decoded queue.Job payload for an ingestion task, matching
// spec.md §6's queue payload schema.
type Payload struct {
	TaskID          string            `json:"task_id"`
	KnowledgeBaseID string            `json:"knowledge_base_id"`
	UserID          string            `json:"user_id"`
	FileURL         string            `json:"file_url,omitempty"`
	Filename        string            `json:"filename,omitempty"`
	OSSType         string            `json:"oss_type,omitempty"`
	OSSConfig       *source.ObjectStoreConfig `json:"oss_config,omitempty"`
	ChunkSize       int               `json:"chunk_size"`
	ChunkOverlap    int               `json:"chunk_overlap"`
	Separator       string            `json:"separator"`
	PreProcessRules []extractor.PreprocessRule `json:"pre_process_rules"`
	JQSchema        string            `json:"jqSchema"`
}

// Dependencies bundles everything a single orchestration run needs,
// resolved by the caller (cmd/kb-worker) from a knowledge base's embedding
// model and vector-store backend.
type Dependencies struct {
	Store      *metadatastore.Store
	VectorStore vectorstore.Store
	Embedder   Embedder
	Dimension  int
	HTTPReaderFactory func(url string) source.Reader
}

// Embedder is the subset of embedding.Embedder the orchestrator needs,
// named locally to avoid importing the embedding package's registry
// machinery into this package's dependency surface.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Run executes one ingestion task end to end. It never returns an error
// for per-document failures — only for task-level failures (a task
// progress update, downloading or unpacking the input, enumerating an
// object-store prefix), matching spec.md §4.8's partial-success policy.
func Run(ctx context.Context, deps Dependencies, p Payload) error {
	if err := deps.Store.UpdateTaskProgress(p.TaskID, metadatastore.TaskStatusInProgress, 0.0, "starting"); err != nil {
		return fmt.Errorf("failed to mark task in progress: %w", err)
	}

	switch {
	case p.OSSType != "":
		return runObjectStorePrefix(ctx, deps, p)
	case strings.HasSuffix(strings.ToLower(p.FileURL), ".zip"):
		return runZip(ctx, deps, p)
	default:
		return runSingleFile(ctx, deps, p)
	}
}

func runSingleFile(ctx context.Context, deps Dependencies, p Payload) error {
	reader := deps.HTTPReaderFactory(p.FileURL)
	files, err := reader.Read(ctx)
	if err != nil {
		return failTask(deps, p.TaskID, fmt.Errorf("failed to download %s: %w", p.FileURL, err))
	}
	if len(files) == 0 {
		return failTask(deps, p.TaskID, fmt.Errorf("no file downloaded from %s", p.FileURL))
	}

	if err := deps.Store.UpdateTaskProgress(p.TaskID, metadatastore.TaskStatusInProgress, 0.1, "downloaded"); err != nil {
		logger.Warnf("orchestrator: failed to record download progress: %v", err)
	}

	file := files[0]
	if p.Filename != "" {
		file.Name = p.Filename
	}

	succeeded, failed := processDocuments(ctx, deps, p, []source.File{file}, 1)
	return finishTask(deps, p.TaskID, succeeded, failed)
}

func runZip(ctx context.Context, deps Dependencies, p Payload) error {
	downloader := deps.HTTPReaderFactory(p.FileURL)
	zipFiles, err := downloader.Read(ctx)
	if err != nil || len(zipFiles) == 0 {
		return failTask(deps, p.TaskID, fmt.Errorf("failed to download zip %s: %w", p.FileURL, err))
	}

	zr := source.NewZipReader(zipFiles[0].Data)
	files, err := zr.Read(ctx)
	if err != nil {
		return failTask(deps, p.TaskID, fmt.Errorf("failed to extract zip %s: %w", p.FileURL, err))
	}

	if err := deps.Store.UpdateTaskProgress(p.TaskID, metadatastore.TaskStatusInProgress, 0.1, "downloaded"); err != nil {
		logger.Warnf("orchestrator: failed to record download progress: %v", err)
	}

	succeeded, failed := processDocuments(ctx, deps, p, files, len(files))
	return finishTask(deps, p.TaskID, succeeded, failed)
}

func runObjectStorePrefix(ctx context.Context, deps Dependencies, p Payload) error {
	if p.OSSConfig == nil {
		return failTask(deps, p.TaskID, fmt.Errorf("oss_type %q set without oss_config", p.OSSType))
	}

	reader, err := source.NewS3Reader(ctx, *p.OSSConfig, p.Filename)
	if err != nil {
		return failTask(deps, p.TaskID, fmt.Errorf("failed to initialize object store reader: %w", err))
	}

	files, err := reader.Read(ctx)
	if err != nil {
		return failTask(deps, p.TaskID, fmt.Errorf("failed to enumerate object store prefix: %w", err))
	}

	if err := deps.Store.UpdateTaskProgress(p.TaskID, metadatastore.TaskStatusInProgress, 0.1, "downloaded"); err != nil {
		logger.Warnf("orchestrator: failed to record download progress: %v", err)
	}

	succeeded, failed := processDocuments(ctx, deps, p, files, len(files))
	return finishTask(deps, p.TaskID, succeeded, failed)
}

// processDocuments runs the per-document pipeline over files sequentially
// (spec.md §5: no fan-out within a worker), emitting
// 0.1 + 0.9*(done/total) progress after each file.
func processDocuments(ctx context.Context, deps Dependencies, p Payload, files []source.File, total int) (succeeded, failed int) {
	for i, file := range files {
		if err := processOneDocument(ctx, deps, p, file); err != nil {
			logger.Errorf("orchestrator: document %s failed: %v", file.Name, err)
			failed++
		} else {
			succeeded++
		}

		done := i + 1
		progress := 0.1 + 0.9*(float64(done)/float64(total))
		if err := deps.Store.UpdateTaskProgress(p.TaskID, metadatastore.TaskStatusInProgress, progress, fmt.Sprintf("processed %d/%d", done, total)); err != nil {
			logger.Warnf("orchestrator: failed to record progress: %v", err)
		}
	}
	return succeeded, failed
}

func failTask(deps Dependencies, taskID string, err error) error {
	if updateErr := deps.Store.UpdateTaskProgress(taskID, metadatastore.TaskStatusFailed, 1.0, err.Error()); updateErr != nil {
		logger.Errorf("orchestrator: failed to mark task %s failed: %v", taskID, updateErr)
	}
	return err
}

func finishTask(deps Dependencies, taskID string, succeeded, failed int) error {
	message := fmt.Sprintf("completed: %d succeeded, %d failed", succeeded, failed)
	if err := deps.Store.UpdateTaskProgress(taskID, metadatastore.TaskStatusCompleted, 1.0, message); err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	return nil
}

func defaultSplitterOptions(p Payload) splitter.Options {
	return splitter.Options{
		ChunkSize:    p.ChunkSize,
		ChunkOverlap: p.ChunkOverlap,
		Separator:    p.Separator,
	}
}

// DecodePayload unmarshals a dequeued job's raw payload into Payload.
func DecodePayload(job queue.Job) (Payload, error) {
	var p Payload
	if err := decodeJSON(job.Payload, &p); err != nil {
		return Payload{}, fmt.Errorf("failed to decode ingestion payload: %w", err)
	}
	return p, nil
}
