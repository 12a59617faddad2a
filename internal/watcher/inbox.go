package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/fileid"
	"github.com/hyperjump/shiori/internal/models"
)

// Extensions are the file types the inbox accepts.
var Extensions = []string{
	models.FileTypePDF.Extension(),
	models.FileTypeDOCX.Extension(),
	models.FileTypeTXT.Extension(),
}

// Uploader accepts files into the pipeline.
type Uploader interface {
	Upload(ctx context.Context, in *models.UploadInput) (*models.Document, error)
}

// Inbox uploads settled files. The document id is derived from the path, so a file that is
// saved again does not produce a second document.
type Inbox struct {
	uploader Uploader
	maxBytes int64
	logger   *zap.Logger
}

// NewInbox creates an inbox. Files larger than maxBytes are skipped when maxBytes > 0.
func NewInbox(uploader Uploader, maxBytes int64, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Handle reads path and uploads it. It returns the created document, or nil when the file was
// already uploaded.
func (in *Inbox) Handle(ctx context.Context, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if in.maxBytes > 0 && info.Size() > in.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", abs, info.Size(), in.maxBytes, models.ErrTooLarge)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	doc, err := in.uploader.Upload(ctx, &models.UploadInput{
		ID:       fileid.FileDocID(abs),
		Filename: filepath.Base(abs),
		Content:  content,
	})
	if errors.Is(err, models.ErrConflict) {
		in.logger.Debug("inbox file already uploaded", zap.String("path", abs))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	in.logger.Info("inbox file uploaded", zap.String("path", abs), zap.String("document_id", doc.ID))
	return doc, nil
}

// HandleFunc adapts Handle to a Watcher callback, logging failures.
func (in *Inbox) HandleFunc(ctx context.Context) func(path string) {
	return func(path string) {
		if _, err := in.Handle(ctx, path); err != nil {
			in.logger.Warn("inbox upload failed", zap.String("path", path), zap.Error(err))
		}
	}
}
