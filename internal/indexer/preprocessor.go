package indexer

import (
	"regexp"
	"strings"
	"unicode"
)

// paragraphBreak matches a blank line, allowing trailing whitespace on the empty line.
var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// SplitParagraphs splits text on blank lines and drops segments that are only whitespace.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Preprocess flattens a paragraph for indexing: trims it and collapses every whitespace run,
// line breaks included, to one space.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}
