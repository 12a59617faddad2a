package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/shiori/internal/models"
)

func extractPDF(ctx context.Context, content []byte) (out *Extraction, err error) {
	// The PDF reader panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = models.NewExtractionError(models.CodeCorruptContent, "unreadable PDF", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, models.NewExtractionError(models.CodeCorruptContent, "open PDF", err)
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, models.NewExtractionError(models.CodeCorruptContent, "PDF has no pages", nil)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, models.NewExtractionError(models.CodeCorruptContent, fmt.Sprintf("extract page %d", i), err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, models.NewExtractionError(models.CodeScannedNotSupported,
			"PDF has no text layer; scanned documents are not supported", nil)
	}

	return &Extraction{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: numPages,
		Metadata:  pdfInfo(r),
	}, nil
}

// pdfInfo reads Title and Author from the trailer's Info dictionary.
func pdfInfo(r *pdf.Reader) *models.Metadata {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	m := &models.Metadata{
		Title: strings.TrimSpace(info.Key("Title").Text()),
	}
	if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
		m.Authors = splitAuthors(author)
	}
	if m.IsEmpty() {
		return nil
	}
	return m
}
