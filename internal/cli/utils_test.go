package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "attention",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				ChunkID:       "doc-1-chunk-0",
				DocumentID:    "doc-1",
				DocumentTitle: "Attention Is All You Need",
				PageOrIndex:   0,
				Content:       "We propose the Transformer, based solely on attention mechanisms.",
				Score:         0.9,
				KeywordScore:  0.8,
				SemanticScore: 0.7,
				HighlightSpan: &models.Span{Start: 44, End: 53},
				Rank:          1,
			},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON, 0); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "attention" || decoded.QueryTime != 42 || len(decoded.Results) != 1 {
		t.Errorf("decoded: %+v", decoded)
	}
	if decoded.Results[0].HighlightSpan == nil || decoded.Results[0].HighlightSpan.Start != 44 {
		t.Errorf("highlight span lost: %+v", decoded.Results[0])
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText, 0); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", `"attention"`, "42ms", "Rank: 1", "Document: doc-1", "doc-1-chunk-0", "Attention Is All You Need", "Transformer"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_textSnippet(t *testing.T) {
	resp := sampleResponse()
	resp.Results[0].Content = strings.Repeat("lorem ", 40) + "needle" + strings.Repeat(" ipsum", 40)
	resp.Results[0].HighlightSpan = &models.Span{Start: 240, End: 246}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, resp, OutputText, 40); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "needle") {
		t.Errorf("snippet should keep the highlighted match:\n%s", out)
	}
	if strings.Count(out, "lorem") >= 40 {
		t.Errorf("snippet should be shortened:\n%s", out)
	}
}

func TestWriteDocument_text(t *testing.T) {
	doc := &models.Document{
		ID:                  "doc-1",
		Filename:            "scan.pdf",
		FileType:            models.FileTypePDF,
		UploadTime:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ProcessingStatus:    models.StatusFailed,
		VectorizationStatus: models.StatusPending,
		ErrorCode:           models.CodeScannedNotSupported,
		ErrorMessage:        "pdf has no text layer",
		Metadata:            &models.Metadata{Authors: []string{"Ada Lovelace"}, Year: 1843},
	}
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"doc-1", "scan.pdf", "failed", "pending", "scanned_not_supported", "Ada Lovelace", "1843", "2024-05-01T12:00:00Z"} {
		if !strings.Contains(out, sub) {
			t.Errorf("missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteDocumentList_text(t *testing.T) {
	list := &server.DocumentList{
		Documents: []*models.Document{
			{ID: "a", Filename: "a.txt", ProcessingStatus: models.StatusCompleted, VectorizationStatus: models.StatusCompleted},
			{ID: "b", Filename: "b.txt", ProcessingStatus: models.StatusProcessing, VectorizationStatus: models.StatusPending},
		},
		Total: 3, Page: 1, Limit: 2, TotalPages: 2,
	}
	var buf bytes.Buffer
	if err := WriteDocumentList(&buf, list, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "3 documents (page 1 of 2)") || !strings.Contains(out, "b.txt") || !strings.Contains(out, "processing") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWriteRegistration(t *testing.T) {
	var buf bytes.Buffer
	reg := &models.Registration{Number: 2, IsNew: false, TotalDistinctCitations: 3}
	if err := WriteRegistration(&buf, "doc#chunk", reg, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "[2] doc#chunk (existing, 3 distinct citations)\n" {
		t.Errorf("got %q", got)
	}
}

func TestWriteStatus(t *testing.T) {
	usage := int64(3 << 20)
	st := &server.StatusResponse{Documents: 2, Chunks: 7, EmbeddingProvider: "mock", EmbeddingDimensions: 768, DiskUsageBytes: &usage}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Documents:         2", "Chunks:            7", "mock, 768 dimensions", "3.0 MiB"} {
		if !strings.Contains(out, sub) {
			t.Errorf("missing %q:\n%s", sub, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
