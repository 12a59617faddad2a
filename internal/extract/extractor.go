// Package extract turns uploaded PDF, DOCX and TXT files into plain text, a page count and
// bibliographic metadata.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
)

// Extraction is the successful output of an extractor.
type Extraction struct {
	Text      string
	PageCount int
	Metadata  *models.Metadata
}

// Extractor extracts text and metadata from document bytes.
type Extractor struct {
	logger *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on fileType. Failures are *models.ExtractionError values carrying one of the
// models.Code* codes: unsupported types give unsupported_format, PDFs with pages but no text layer
// give scanned_not_supported, unreadable bytes give corrupt_content.
func (e *Extractor) Extract(ctx context.Context, content []byte, fileType models.FileType) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		out *Extraction
		err error
	)
	switch fileType {
	case models.FileTypePDF:
		out, err = extractPDF(ctx, content)
	case models.FileTypeDOCX:
		out, err = extractDOCX(content)
	case models.FileTypeTXT:
		out, err = extractPlain(content)
	default:
		return nil, models.NewExtractionError(models.CodeUnsupportedFormat,
			fmt.Sprintf("file type %q is not supported", fileType), nil)
	}
	if err != nil {
		return nil, err
	}

	meta := DetectMetadata(out.Text)
	if out.Metadata != nil {
		// Embedded document properties win over text heuristics.
		meta = models.MergeMetadata(out.Metadata, meta)
	}
	if !meta.IsEmpty() {
		out.Metadata = meta
	} else {
		out.Metadata = nil
	}
	e.logger.Debug("extracted document",
		zap.String("file_type", string(fileType)),
		zap.Int("pages", out.PageCount),
		zap.Int("chars", len(out.Text)))
	return out, nil
}
