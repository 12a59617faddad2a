package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/shiori/internal/models"
)

const (
	// yearScanWindow bounds the fallback year search to the front matter.
	yearScanWindow = 1000
	maxTitleRunes  = 200
	maxHeaderLines = 15
)

var (
	doiLabeledRe  = regexp.MustCompile(`(?i)\bdoi[:\s]*(10\.\d{4,9}(?:\.\d+)*/\S+)`)
	doiBareRe     = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s"<>]+)`)
	copyrightRe   = regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)\s*(\d{4})`)
	yearRe        = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	authorsLineRe = regexp.MustCompile(`(?im)^\s*(?:authors?|作者)\s*[:：]\s*(.+)$`)
	keywordsRe    = regexp.MustCompile(`(?im)^\s*(?:keywords?|index terms|关键词)\s*[:：—-]\s*(.+)$`)
	abstractRe    = regexp.MustCompile(`(?is)(?:^|\n)\s*(?:abstract|摘要)\s*[:：.—-]?\s*(.+?)(?:\n\s*\n|\n\s*(?:keywords?|index terms|关键词|1\.?\s+introduction))`)
	journalRe     = regexp.MustCompile(`(?im)^\s*(?:journal|published in|期刊)\s*[:：]\s*(.+)$`)
	authorSplitRe = regexp.MustCompile(`\s*(?:[,;，；、]|\band\b|&)\s*`)
)

// DetectMetadata applies text heuristics to the front matter of a paper.
// Fields that cannot be discovered stay empty.
func DetectMetadata(text string) *models.Metadata {
	m := &models.Metadata{}
	if text == "" {
		return m
	}
	m.Title = detectTitle(text)
	m.DOI = detectDOI(text)
	m.Year = detectYear(text)
	if match := authorsLineRe.FindStringSubmatch(text); match != nil {
		m.Authors = splitAuthors(match[1])
	}
	if match := keywordsRe.FindStringSubmatch(text); match != nil {
		m.Keywords = splitKeywords(match[1])
	}
	if match := abstractRe.FindStringSubmatch(text); match != nil {
		m.Abstract = strings.Join(strings.Fields(match[1]), " ")
	}
	if match := journalRe.FindStringSubmatch(text); match != nil {
		m.Journal = strings.TrimSpace(match[1])
	}
	return m
}

// detectTitle returns the first non-empty line of the header that is short enough to be a title
// and is not itself a labeled field.
func detectTitle(text string) string {
	lines := strings.SplitN(text, "\n", maxHeaderLines+1)
	if len(lines) > maxHeaderLines {
		lines = lines[:maxHeaderLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) >= maxTitleRunes {
			return ""
		}
		if authorsLineRe.MatchString(line) || keywordsRe.MatchString(line) || doiLabeledRe.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

func detectDOI(text string) string {
	var doi string
	if m := doiLabeledRe.FindStringSubmatch(text); m != nil {
		doi = m[1]
	} else if m := doiBareRe.FindStringSubmatch(text); m != nil {
		doi = m[1]
	}
	return strings.TrimRight(doi, ".,;)]")
}

func detectYear(text string) int {
	if m := copyrightRe.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	head := text
	if len(head) > yearScanWindow {
		head = head[:yearScanWindow]
	}
	if m := yearRe.FindStringSubmatch(head); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	return 0
}

func splitAuthors(s string) []string {
	var out []string
	for _, part := range authorSplitRe.Split(strings.TrimSpace(s), -1) {
		part = strings.Trim(part, " .")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '，' || r == '；' || r == '、'
	}) {
		if part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ".")); part != "" {
			out = append(out, part)
		}
	}
	return out
}
