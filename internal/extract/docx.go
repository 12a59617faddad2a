package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	docxAppXMLPath      = "docProps/app.xml"
	docxCoreXMLPath     = "docProps/core.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// paragraphEnd splits the body into <w:p> paragraphs.
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	pageBreak    = regexp.MustCompile(`<w:br[^>]*w:type="page"`)
	pagesTag     = regexp.MustCompile(`<Pages>(\d+)</Pages>`)
	coreTitle    = regexp.MustCompile(`<dc:title>([^<]*)</dc:title>`)
	coreCreator  = regexp.MustCompile(`<dc:creator>([^<]*)</dc:creator>`)
	mainPartRe   = regexp.MustCompile(`<Override[^>]*PartName="([^"]+)"[^>]*ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	mainPartRe2  = regexp.MustCompile(`<Override[^>]*ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]*PartName="([^"]+)"`)
)

// extractDOCX reads the main document part and joins <w:t> runs per paragraph, separating
// paragraphs with blank lines so the chunker sees the original structure.
func extractDOCX(content []byte) (*Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, models.NewExtractionError(models.CodeCorruptContent, "DOCX is not a zip archive", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	docPath := docxDocumentXMLPath
	if ct, err := readZipFile(files[contentTypesPath]); err == nil {
		if p := mainDocumentPart(ct); p != "" {
			docPath = p
		}
	}
	body, err := readZipFile(files[docPath])
	if err != nil {
		return nil, models.NewExtractionError(models.CodeCorruptContent, fmt.Sprintf("DOCX part %s", docPath), err)
	}

	var paragraphs []string
	for _, p := range paragraphEnd.Split(body, -1) {
		var b strings.Builder
		for _, run := range wtTag.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(run[1]))
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	out := &Extraction{
		Text:      strings.Join(paragraphs, "\n\n"),
		PageCount: len(pageBreak.FindAllStringIndex(body, -1)) + 1,
	}
	if app, err := readZipFile(files[docxAppXMLPath]); err == nil {
		if m := pagesTag.FindStringSubmatch(app); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				out.PageCount = n
			}
		}
	}
	if core, err := readZipFile(files[docxCoreXMLPath]); err == nil {
		meta := &models.Metadata{}
		if m := coreTitle.FindStringSubmatch(core); m != nil {
			meta.Title = strings.TrimSpace(html.UnescapeString(m[1]))
		}
		if m := coreCreator.FindStringSubmatch(core); m != nil {
			meta.Authors = splitAuthors(html.UnescapeString(m[1]))
		}
		if !meta.IsEmpty() {
			out.Metadata = meta
		}
	}
	return out, nil
}

func mainDocumentPart(contentTypes string) string {
	if m := mainPartRe.FindStringSubmatch(contentTypes); m != nil {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := mainPartRe2.FindStringSubmatch(contentTypes); m != nil {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// maxZipPartBytes caps the inflated size of a single DOCX part.
var maxZipPartBytes int64 = 64 << 20

func readZipFile(f *zip.File) (string, error) {
	if f == nil {
		return "", fmt.Errorf("not found")
	}
	if f.UncompressedSize64 > uint64(maxZipPartBytes) {
		return "", partTooLarge(f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipPartBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxZipPartBytes {
		return "", partTooLarge(f.Name)
	}
	return string(data), nil
}

func partTooLarge(name string) error {
	return models.NewExtractionError(models.CodeCorruptContent,
		fmt.Sprintf("DOCX part %s inflates beyond %d bytes", name, maxZipPartBytes), nil)
}
