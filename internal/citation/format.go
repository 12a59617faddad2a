package citation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// Supported reference styles.
const (
	StyleAPA     = "apa"
	StyleMLA     = "mla"
	StyleGBT7714 = "gb-t-7714"
)

// Styles lists the supported styles.
var Styles = []string{StyleAPA, StyleMLA, StyleGBT7714}

// NormalizeStyle resolves style, or one of its aliases, to a supported style name. An empty
// style means APA.
func NormalizeStyle(style string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", StyleAPA:
		return StyleAPA, nil
	case StyleMLA:
		return StyleMLA, nil
	case StyleGBT7714, "gbt7714", "gb/t 7714":
		return StyleGBT7714, nil
	}
	return "", fmt.Errorf("unknown citation style %q: %w", style, models.ErrInvalidArgument)
}

// Format renders ref in style. Empty fields are left out.
func Format(ref models.Reference, style string) (string, error) {
	if strings.TrimSpace(ref.Title) == "" && len(ref.Authors) == 0 {
		return "", fmt.Errorf("reference needs a title or an author: %w", models.ErrInvalidArgument)
	}
	style, err := NormalizeStyle(style)
	if err != nil {
		return "", err
	}
	switch style {
	case StyleMLA:
		return formatMLA(ref), nil
	case StyleGBT7714:
		return formatGBT(ref), nil
	}
	return formatAPA(ref), nil
}

// Authors. (Year). Title. Journal. https://doi.org/DOI
func formatAPA(ref models.Reference) string {
	var parts []string
	if a := joinAuthors(ref.Authors, ", ", ", & ", 0); a != "" {
		parts = append(parts, sentence(a))
	}
	if ref.Year > 0 {
		parts = append(parts, "("+strconv.Itoa(ref.Year)+").")
	}
	if t := strings.TrimSpace(ref.Title); t != "" {
		parts = append(parts, sentence(t))
	}
	if j := strings.TrimSpace(ref.Journal); j != "" {
		parts = append(parts, sentence(j))
	}
	if ref.DOI != "" {
		parts = append(parts, "https://doi.org/"+ref.DOI)
	}
	return strings.Join(parts, " ")
}

// Authors. "Title." Journal, Year.
func formatMLA(ref models.Reference) string {
	var parts []string
	var authors string
	switch len(ref.Authors) {
	case 0:
	case 1, 2:
		authors = joinAuthors(ref.Authors, ", ", " and ", 0)
	default:
		authors = strings.TrimSpace(ref.Authors[0]) + ", et al"
	}
	if authors != "" {
		parts = append(parts, sentence(authors))
	}
	if t := strings.TrimSpace(ref.Title); t != "" {
		parts = append(parts, `"`+sentence(t)+`"`)
	}
	var tail []string
	if j := strings.TrimSpace(ref.Journal); j != "" {
		tail = append(tail, j)
	}
	if ref.Year > 0 {
		tail = append(tail, strconv.Itoa(ref.Year))
	}
	if len(tail) > 0 {
		parts = append(parts, sentence(strings.Join(tail, ", ")))
	}
	return strings.Join(parts, " ")
}

// Authors. Title[J]. Journal, Year.
func formatGBT(ref models.Reference) string {
	var parts []string
	if a := joinAuthors(ref.Authors, ", ", ", ", 3); a != "" {
		parts = append(parts, sentence(a))
	}
	if t := strings.TrimSpace(ref.Title); t != "" {
		marker := "[M]"
		if ref.Journal != "" {
			marker = "[J]"
		}
		parts = append(parts, strings.TrimRight(t, ".")+marker+".")
	}
	var tail []string
	if j := strings.TrimSpace(ref.Journal); j != "" {
		tail = append(tail, j)
	}
	if ref.Year > 0 {
		tail = append(tail, strconv.Itoa(ref.Year))
	}
	if len(tail) > 0 {
		parts = append(parts, sentence(strings.Join(tail, ", ")))
	}
	if ref.DOI != "" {
		parts = append(parts, "DOI:"+ref.DOI+".")
	}
	return strings.Join(parts, " ")
}

// joinAuthors joins names with sep, using last before the final name. When limit > 0 and there
// are more names, only the first limit are kept followed by "et al".
func joinAuthors(authors []string, sep, last string, limit int) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if limit > 0 && len(names) > limit {
		return strings.Join(names[:limit], sep) + sep + "et al"
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], sep) + last + names[len(names)-1]
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}
