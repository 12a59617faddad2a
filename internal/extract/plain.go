package extract

import (
	"strings"
	"unicode/utf8"
)

// charsPerPage approximates a printed page for plain text, which has no pagination of its own.
const charsPerPage = 3000

// extractPlain validates UTF-8 (invalid sequences become U+FFFD) and normalizes line endings.
func extractPlain(content []byte) (*Extraction, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)

	pages := 0
	if n := utf8.RuneCountInString(s); n > 0 {
		pages = (n + charsPerPage - 1) / charsPerPage
	}
	return &Extraction{Text: s, PageCount: pages}, nil
}
