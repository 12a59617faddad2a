package search

import (
	"testing"

	"github.com/hyperjump/shiori/internal/models"
)

func TestHighlightSpan(t *testing.T) {
	tests := []struct {
		content, query string
		want           *models.Span
	}{
		{"Deep Learning for Citations", "learning", &models.Span{Start: 5, End: 13}},
		{"Deep Learning for Citations", "LEARNING FOR", &models.Span{Start: 5, End: 17}},
		{"Graph neural networks", "neural graph models", &models.Span{Start: 6, End: 12}},
		{"注意力机制的研究", "机制", &models.Span{Start: 3, End: 5}},
		{"nothing here", "absent", nil},
	}
	for _, tt := range tests {
		got := HighlightSpan(tt.content, tt.query)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("HighlightSpan(%q, %q) = %v, want %v", tt.content, tt.query, got, tt.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	if Snippet("short", nil, 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if got := Snippet("long text here", nil, 4); got != "long..." {
		t.Errorf("got %s", got)
	}
	if Snippet("x", nil, 0) != "x" {
		t.Error("maxLen 0 should return as-is")
	}
	content := "aaaaaaaaaaaaaaaaaaaa needle bbbbbbbbbbbbbbbbbbbb"
	got := Snippet(content, &models.Span{Start: 21, End: 27}, 12)
	if got != "...aa needle bb..." {
		t.Errorf("got %q", got)
	}
}
