package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/northbound-system/kb-ingest/internal/extractor"
	"github.com/northbound-system/kb-ingest/internal/queue"
	"github.com/northbound-system/kb-ingest/internal/splitter"
)

func TestDecodePayload_RoundTrips(t *testing.T) {
	raw, err := json.Marshal(Payload{
		TaskID:          "task-1",
		KnowledgeBaseID: "kb-1",
		FileURL:         "https://example.com/doc.pdf",
		ChunkSize:       500,
		ChunkOverlap:    50,
		Separator:       "\\n\\n",
	})
	if err != nil {
		t.Fatalf("failed to marshal fixture payload: %v", err)
	}

	job := queue.Job{Type: "ingest", Payload: raw}
	p, err := DecodePayload(job)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if p.TaskID != "task-1" || p.KnowledgeBaseID != "kb-1" {
		t.Errorf("unexpected decoded payload: %+v", p)
	}
}

func TestSplitSegments_BypassSegmentsPassThroughUnsplit(t *testing.T) {
	segments := []extractor.RawSegment{
		{Content: "Header: value", Bypass: true, Metadata: map[string]any{"row": 1}},
		{Content: "a very long paragraph one\n\nanother paragraph here", Bypass: false},
	}

	out, err := splitSegments(segments, splitter.Options{ChunkSize: 500, ChunkOverlap: 10, Separator: "\n\n"})
	if err != nil {
		t.Fatalf("splitSegments failed: %v", err)
	}

	if len(out) < 2 {
		t.Fatalf("expected at least 2 output segments, got %d", len(out))
	}
	if out[0].Content != "Header: value" {
		t.Errorf("expected bypass segment to survive untouched, got %q", out[0].Content)
	}
}

func TestSplitSegments_EmptyInputProducesNoSegments(t *testing.T) {
	out, err := splitSegments(nil, splitter.Options{})
	if err != nil {
		t.Fatalf("splitSegments failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no segments, got %d", len(out))
	}
}

func TestDefaultSplitterOptions_PassesThroughPayloadFields(t *testing.T) {
	opts := defaultSplitterOptions(Payload{ChunkSize: 200, ChunkOverlap: 20, Separator: "|"})
	if opts.ChunkSize != 200 || opts.ChunkOverlap != 20 || opts.Separator != "|" {
		t.Errorf("unexpected options: %+v", opts)
	}
}
