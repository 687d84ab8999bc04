package extractor

import "testing"

func TestExtract_PlainText(t *testing.T) {
	segments, err := Extract("notes.txt", []byte("hello   world"), Options{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(segments) != 1 || segments[0].Content != "hello   world" {
		t.Errorf("unexpected segments: %+v", segments)
	}
}

func TestExtract_ReplaceSpaceAndTabCollapsesWhitespaceToNothing(t *testing.T) {
	input := []byte("contact  me\tat  you")
	segments, err := Extract("notes.txt", input, Options{
		PreprocessRules: []PreprocessRule{RuleReplaceSpaceAndTab},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got := segments[0].Content
	want := "contactmeatyou"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_DeleteURLAndEmailStripsBoth(t *testing.T) {
	input := []byte("reach me at test@example.com or https://example.com/path")
	segments, err := Extract("notes.txt", input, Options{
		PreprocessRules: []PreprocessRule{RuleDeleteURLAndEmail},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got := segments[0].Content
	want := "reach me at  or "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractCSV_PreprocessRulesStillApply(t *testing.T) {
	input := []byte("name\nAlice Smith\n")
	segments, err := Extract("people.csv", input, Options{
		PreprocessRules: []PreprocessRule{RuleReplaceSpaceAndTab},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 row segment, got %d", len(segments))
	}
	if !segments[0].Bypass {
		t.Errorf("expected CSV segments to still bypass the splitter")
	}
	want := "name:AliceSmith"
	if segments[0].Content != want {
		t.Errorf("expected preprocessing to run on bypass segments too, got %q, want %q", segments[0].Content, want)
	}
}

func TestExtractCSV_ProducesOneSegmentPerRow(t *testing.T) {
	input := []byte("name,age\nAlice,30\nBob,25\n")
	segments, err := Extract("people.csv", input, Options{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 row segments, got %d", len(segments))
	}
	if !segments[0].Bypass {
		t.Errorf("expected CSV segments to bypass the splitter")
	}
	if segments[0].Content != "name: Alice, age: 30" {
		t.Errorf("unexpected row content: %q", segments[0].Content)
	}
}

func TestExtractJSON_SelectorProjectsEachRecord(t *testing.T) {
	input := []byte(`{"title": "a", "body": "first"}` + "\n" + `{"title": "b", "body": "second"}`)
	segments, err := Extract("records.jsonl", input, Options{JSONSelector: ".body"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(segments) != 2 || segments[0].Content != "first" || segments[1].Content != "second" {
		t.Errorf("unexpected segments: %+v", segments)
	}
}

func TestExtractJSON_DefaultSelectorPassesWholeRecord(t *testing.T) {
	input := []byte(`[{"a":1},{"a":2}]`)
	segments, err := Extract("records.json", input, Options{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
}

func TestExtract_UnknownExtensionFallsBackToText(t *testing.T) {
	segments, err := Extract("notes.xyz", []byte("fallback content"), Options{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if segments[0].Content != "fallback content" {
		t.Errorf("unexpected content: %q", segments[0].Content)
	}
}
