package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northbound-system/kb-ingest/internal/extractor"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/source"
	"github.com/northbound-system/kb-ingest/internal/splitter"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

// processOneDocument runs extract -> split -> embed -> upsert for a single
// file, creating and transitioning a Document row around it per spec.md
// §4.8's per-document pipeline. The vector-store write happens before the
// Document row is marked COMPLETED (spec.md §9's open question on
// ordering: a crash between the two leaves a Document stuck IN_PROGRESS
// rather than a COMPLETED Document with no segments).
func processOneDocument(ctx context.Context, deps Dependencies, p Payload, file source.File) error {
	docID := uuid.NewString()
	doc := metadatastore.Document{
		ID:              docID,
		KnowledgeBaseID: p.KnowledgeBaseID,
		Filename:        file.Name,
		SourceURL:       p.FileURL,
		IndexStatus:     metadatastore.DocStatusPending,
	}
	if err := deps.Store.CreateDocument(doc); err != nil {
		return fmt.Errorf("failed to create document row for %s: %w", file.Name, err)
	}

	if err := deps.Store.UpdateDocumentStatus(docID, metadatastore.DocStatusInProgress, ""); err != nil {
		return fmt.Errorf("failed to mark document %s in progress: %w", docID, err)
	}

	if err := runDocumentPipeline(ctx, deps, p, file, docID); err != nil {
		if updateErr := deps.Store.UpdateDocumentStatus(docID, metadatastore.DocStatusFailed, err.Error()); updateErr != nil {
			return fmt.Errorf("%w (also failed to record failure: %v)", err, updateErr)
		}
		return err
	}

	if err := deps.Store.UpdateDocumentStatus(docID, metadatastore.DocStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark document %s completed: %w", docID, err)
	}
	return nil
}

func runDocumentPipeline(ctx context.Context, deps Dependencies, p Payload, file source.File, docID string) error {
	segments, err := extractor.Extract(file.Name, file.Data, extractor.Options{
		JSONSelector:    p.JQSchema,
		PreprocessRules: p.PreProcessRules,
	})
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}

	chunks, err := splitSegments(segments, defaultSplitterOptions(p))
	if err != nil {
		return fmt.Errorf("failed to split %s: %w", file.Name, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	createdAt := nowUnix()
	texts := make([]string, len(chunks))
	metadataKeys := map[string]bool{}
	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]any, len(chunk.Metadata)+4)
		for k, v := range chunk.Metadata {
			if k == "source" {
				continue
			}
			metadata[k] = v
			metadataKeys[k] = true
		}
		metadata["filename"] = file.Name
		metadata["created_at"] = createdAt
		metadata["document_id"] = docID
		metadata["user_id"] = p.UserID

		texts[i] = chunk.Content
		docs[i] = vectorstore.Document{
			ID:          vectorstore.SegmentID(chunk.Content),
			PageContent: chunk.Content,
			Metadata:    metadata,
		}
	}

	vectors, err := deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %s: %w", file.Name, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d segments", len(vectors), len(docs))
	}
	for i := range docs {
		docs[i].Vector = vectors[i]
	}

	if err := deps.VectorStore.AddTexts(ctx, docs); err != nil {
		return fmt.Errorf("failed to upsert segments for %s: %w", file.Name, err)
	}

	keys := make([]string, 0, len(metadataKeys))
	for k := range metadataKeys {
		keys = append(keys, k)
	}
	if err := deps.Store.RegisterMetadataKeys(p.KnowledgeBaseID, keys); err != nil {
		return fmt.Errorf("failed to register metadata keys for %s: %w", file.Name, err)
	}

	return nil
}

// splitSegments runs each extracted RawSegment through the splitter,
// except Bypass segments (CSV rows, JSON-selector records), which pass
// through as single chunks untouched.
func splitSegments(segments []extractor.RawSegment, opts splitter.Options) ([]extractor.RawSegment, error) {
	opts = opts.WithDefaults()

	var out []extractor.RawSegment
	for _, seg := range segments {
		if seg.Bypass {
			out = append(out, seg)
			continue
		}

		chunks, err := splitter.Split(seg.Content, opts)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			out = append(out, extractor.RawSegment{Content: c, Metadata: seg.Metadata})
		}
	}
	return out, nil
}

// nowUnix returns the current time as Unix seconds, matching spec.md §3's
// "created_at (Unix seconds)" and the original's int(time.time()).
func nowUnix() int64 {
	return time.Now().Unix()
}

func decodeJSON(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
