package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
)

// buildPDF writes a minimal PDF with one page per entry. An empty entry produces a page whose
// content stream draws a line but no text, the way a scanned page without OCR looks.
func buildPDF(title string, pages []string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}
	buf.WriteString("%PDF-1.4\n")

	n := len(pages)
	// Object layout: 1 catalog, 2 pages, 3 font, 4 info, then (page, content) pairs.
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	obj(fmt.Sprintf("<< /Title (%s) /Author (Ada Lovelace, Alan Turing) >>", title))
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+2*i))
		stream := "0 0 m 100 100 l S"
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestExtract_pdf(t *testing.T) {
	content := buildPDF("Attention Is All You Need", []string{"Transformers replace recurrence", "Self attention scales"})
	out, err := NewExtractor().Extract(context.Background(), content, models.FileTypePDF)
	if err != nil {
		t.Fatal(err)
	}
	if out.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", out.PageCount)
	}
	if !strings.Contains(out.Text, "Transformers replace recurrence") || !strings.Contains(out.Text, "Self attention") {
		t.Errorf("unexpected text: %q", out.Text)
	}
	if out.Metadata == nil || out.Metadata.Title != "Attention Is All You Need" {
		t.Fatalf("expected title from Info dictionary, got %+v", out.Metadata)
	}
	if len(out.Metadata.Authors) != 2 || out.Metadata.Authors[1] != "Alan Turing" {
		t.Errorf("authors = %v", out.Metadata.Authors)
	}
}

func TestExtract_pdfScanned(t *testing.T) {
	content := buildPDF("Scan", []string{"", ""})
	_, err := NewExtractor().Extract(context.Background(), content, models.FileTypePDF)
	var ee *models.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Code != models.CodeScannedNotSupported {
		t.Errorf("code = %q, want %q", ee.Code, models.CodeScannedNotSupported)
	}
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Error("scanned PDF should wrap ErrUnsupportedFormat")
	}
}

func TestExtract_pdfCorrupt(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte("%PDF-1.4 garbage"), models.FileTypePDF)
	if code := models.ErrorCode(err); code != models.CodeCorruptContent {
		t.Errorf("code = %q, want %q (err %v)", code, models.CodeCorruptContent, err)
	}
}
