package splitter

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	text := "This is a short paragraph that fits in one chunk."
	chunks, err := Split(text, Options{})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("expected single unchanged chunk, got %+v", chunks)
	}
}

func TestSplit_PacksMultipleParagraphsUntilSizeLimit(t *testing.T) {
	para := "This is one paragraph of filler content used to test packing behavior."
	text := strings.Repeat(para+"\n\n", 20)

	chunks, err := Split(text, Options{ChunkSize: 200, ChunkOverlap: 20})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 200+len(para) {
			t.Errorf("chunk exceeds expected bound: %d chars", len(c))
		}
	}
}

func TestSplit_CustomSeparatorUnescaped(t *testing.T) {
	text := "section one|||section two|||section three"
	chunks, err := Split(text, Options{ChunkSize: 15, ChunkOverlap: 0, Separator: `\|\|\|`})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks from 3 sections, got %d: %+v", len(chunks), chunks)
	}
}

func TestSplit_EmptyTextReturnsNoChunks(t *testing.T) {
	chunks, err := Split("   ", Options{})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %+v", chunks)
	}
}
