package search

import (
	"unicode"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// HighlightSpan returns the rune range of the first case-insensitive occurrence of query in
// content, or of the first query token found when the whole query is absent. Nil means no match.
func HighlightSpan(content, query string) *models.Span {
	text := lowerRunes(content)
	if start := indexRunes(text, lowerRunes(query)); start >= 0 {
		return &models.Span{Start: start, End: start + len([]rune(query))}
	}
	for _, tok := range embedding.Tokens(query) {
		needle := []rune(tok)
		if start := indexRunes(text, needle); start >= 0 {
			return &models.Span{Start: start, End: start + len(needle)}
		}
	}
	return nil
}

// Snippet cuts content to at most maxLen runes around span, marking cut ends with "...".
func Snippet(content string, span *models.Span, maxLen int) string {
	r := []rune(content)
	if maxLen <= 0 || len(r) <= maxLen {
		return content
	}
	if span == nil || span.End <= maxLen {
		return utils.Truncate(content, maxLen)
	}
	start := span.Start - maxLen/4
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(r) {
		end = len(r)
		start = end - maxLen
	}
	out := string(r[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(r) {
		out += "..."
	}
	return out
}

// lowerRunes lowercases rune by rune so offsets stay aligned with the original text.
func lowerRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, c := range needle {
			if haystack[i+j] != c {
				continue outer
			}
		}
		return i
	}
	return -1
}
