// Package pipeline drives uploaded documents through extraction and vectorization.
//
// Each document has two phases, extraction and vectorization, each moving
// pending -> processing -> completed | failed. A successful extraction with non-empty text
// continues into vectorization. Failed phases are re-run by Retry from stored input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

// Stage names, used in logs and metrics.
const (
	StageExtract   = "extract"
	StageVectorize = "vectorize"
)

// Extractor turns file bytes into text and metadata.
type Extractor interface {
	Extract(ctx context.Context, content []byte, fileType models.FileType) (*extract.Extraction, error)
}

// Vectorizer replaces a document's chunks with embedded chunks of text.
type Vectorizer interface {
	IndexDocument(ctx context.Context, doc *models.Document, text string) ([]*models.Chunk, error)
}

// Pipeline runs document stages. Stages of one document never overlap; different documents
// run concurrently.
type Pipeline struct {
	store          storage.Storage
	extractor      Extractor
	vectorizer     Vectorizer
	config         config.PipelineConfig
	maxUploadBytes int64
	metrics        *metrics.Metrics
	logger         *zap.Logger

	locks  *keyedMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records stage outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMaxUploadBytes limits the size of uploaded files. Values <= 0 disable the limit.
func WithMaxUploadBytes(n int64) Option {
	return func(p *Pipeline) { p.maxUploadBytes = n }
}

// New creates a pipeline. Close must be called to stop background stages.
func New(store storage.Storage, extractor Extractor, vectorizer Vectorizer, cfg config.PipelineConfig, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		store:      store,
		extractor:  extractor,
		vectorizer: vectorizer,
		config:     cfg,
		logger:     zap.NewNop(),
		locks:      newKeyedMutex(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload validates and stores a file, creates its document in the pending state and starts
// extraction in the background.
func (p *Pipeline) Upload(ctx context.Context, in *models.UploadInput) (*models.Document, error) {
	if p.isClosed() {
		return nil, fmt.Errorf("%w: %w", errClosed, models.ErrInternal)
	}
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("file %q is empty: %w", in.Filename, models.ErrEmptyInput)
	}
	if p.maxUploadBytes > 0 && int64(len(in.Content)) > p.maxUploadBytes {
		return nil, fmt.Errorf("file %q is %d bytes, limit is %d: %w",
			in.Filename, len(in.Content), p.maxUploadBytes, models.ErrTooLarge)
	}
	fileType, ok := models.ParseFileType(in.ContentType)
	if !ok {
		fileType, ok = models.ParseFileType(in.Filename)
	}
	if !ok {
		return nil, fmt.Errorf("file %q: only PDF, DOCX and TXT are accepted: %w", in.Filename, models.ErrUnsupportedFormat)
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	doc := &models.Document{
		ID:                  id,
		Filename:            in.Filename,
		FileType:            fileType,
		Size:                int64(len(in.Content)),
		ProcessingStatus:    models.StatusPending,
		VectorizationStatus: models.StatusPending,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := p.store.SaveFile(ctx, id, in.Content); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	p.logger.Info("document uploaded",
		zap.String("document_id", id),
		zap.String("filename", in.Filename),
		zap.String("file_type", string(fileType)),
		zap.Int64("size", doc.Size))

	if err := p.startExtraction(id); err != nil {
		p.abandonUpload(doc, err)
		return nil, err
	}
	return doc, nil
}

// abandonUpload marks a stored document whose extraction could not be scheduled as failed so
// it can be retried.
func (p *Pipeline) abandonUpload(doc *models.Document, cause error) {
	unlock := p.locks.Lock(doc.ID)
	defer unlock()
	doc.ProcessingStatus = models.StatusFailed
	doc.ErrorCode = models.CodeInterrupted
	doc.ErrorMessage = "extraction could not be scheduled"
	if err := p.store.UpdateDocument(context.Background(), doc); err != nil {
		p.logger.Error("failed to record abandoned upload",
			zap.String("document_id", doc.ID), zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	p.logger.Warn("extraction not scheduled", zap.String("document_id", doc.ID), zap.Error(cause))
}

// ExtractText runs the extraction stage synchronously. The stored file type is used; a
// supplied fileType only has to name a supported type. On success with non-empty text,
// vectorization continues in the background. A failed stage returns both the result and the
// *models.ExtractionError.
func (p *Pipeline) ExtractText(ctx context.Context, documentID, fileType string) (*models.ExtractionResult, error) {
	if documentID == "" {
		return nil, fmt.Errorf("documentId is required: %w", models.ErrInvalidArgument)
	}
	if fileType != "" {
		if _, ok := models.ParseFileType(fileType); !ok {
			return nil, fmt.Errorf("file type %q: %w", fileType, models.ErrUnsupportedFormat)
		}
	}
	if _, err := p.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	result, err := p.runExtraction(documentID)
	if err == nil && result.Text != "" {
		if startErr := p.startVectorization(documentID); startErr != nil {
			p.logger.Warn("could not chain vectorization", zap.String("document_id", documentID), zap.Error(startErr))
		}
	}
	return result, err
}

// VectorizeDocument chunks and embeds text for the document synchronously, replacing earlier
// chunks. Empty text fails with models.ErrEmptyInput and creates nothing. When the document has no
// extracted text yet, text is stored as its vectorization input for later retries.
func (p *Pipeline) VectorizeDocument(ctx context.Context, documentID, text string) ([]*models.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("documentId is required: %w", models.ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", models.ErrEmptyInput)
	}
	if _, err := p.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return p.runVectorization(documentID, text)
}

// Retry re-enters the failed phase of a document from its stored input. Extraction is retried
// first when both failed. It returns the document already moved to processing; the stage itself
// runs in the background. A document without a failed phase gives models.ErrConflict.
func (p *Pipeline) Retry(ctx context.Context, documentID string) (*models.Document, error) {
	unlock := p.locks.Lock(documentID)
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		unlock()
		return nil, err
	}
	var stage string
	switch {
	case doc.ProcessingStatus == models.StatusFailed:
		stage = StageExtract
		doc.ProcessingStatus = models.StatusProcessing
	case doc.VectorizationStatus == models.StatusFailed:
		stage = StageVectorize
		doc.VectorizationStatus = models.StatusProcessing
	default:
		unlock()
		return nil, fmt.Errorf("document %s has no failed stage (extraction %s, vectorization %s): %w",
			documentID, doc.ProcessingStatus, doc.VectorizationStatus, models.ErrConflict)
	}
	doc.ErrorCode, doc.ErrorMessage = "", ""
	err = p.store.UpdateDocument(ctx, doc)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	p.logger.Info("retrying stage", zap.String("document_id", documentID), zap.String("stage", stage))

	if stage == StageExtract {
		err = p.startExtraction(documentID)
	} else {
		err = p.startVectorization(documentID)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Recover marks stages a previous process left unfinished as failed with code interrupted so
// they can be retried. That covers a phase left in processing, extraction that never started,
// and vectorization that never started after extraction produced text. It runs before any
// upload and returns the number of documents changed.
func (p *Pipeline) Recover(ctx context.Context) (int, error) {
	docs, err := p.store.ListUnfinishedDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished documents: %w", err)
	}
	for _, doc := range docs {
		switch doc.ProcessingStatus {
		case models.StatusPending, models.StatusProcessing:
			doc.ProcessingStatus = models.StatusFailed
		case models.StatusCompleted:
			if doc.VectorizationStatus != models.StatusCompleted {
				doc.VectorizationStatus = models.StatusFailed
			}
		}
		doc.ErrorCode = models.CodeInterrupted
		doc.ErrorMessage = "processing was interrupted by a restart"
		if err := p.store.UpdateDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("update document %s: %w", doc.ID, err)
		}
		p.logger.Warn("recovered interrupted document", zap.String("document_id", doc.ID))
	}
	return len(docs), nil
}

// Wait blocks until no stage is running or scheduled.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels running stages, which end as failed with code interrupted, and waits for them.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
	return nil
}

var errClosed = errors.New("pipeline is closed")

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// goStage runs fn in the background unless the pipeline is closed.
func (p *Pipeline) goStage(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: %w", errClosed, models.ErrInternal)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
	return nil
}

// startExtraction schedules extraction followed, on success with text, by vectorization.
func (p *Pipeline) startExtraction(id string) error {
	return p.goStage(func() {
		result, err := p.runExtraction(id)
		if err != nil || result.Text == "" {
			return
		}
		if err := p.startVectorization(id); err != nil {
			p.logger.Warn("could not chain vectorization", zap.String("document_id", id), zap.Error(err))
		}
	})
}

// startVectorization schedules vectorization of the stored extracted text.
func (p *Pipeline) startVectorization(id string) error {
	return p.goStage(func() {
		_, _ = p.runVectorization(id, "")
	})
}

// stageContext bounds a stage by timeout and by the pipeline lifetime, not by the caller, so an
// abandoned request does not abort a stage halfway.
func (p *Pipeline) stageContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(p.ctx)
	}
	return context.WithTimeout(p.ctx, timeout)
}

// failureCode classifies a stage error, giving timeouts and shutdowns priority over the
// error's own code.
func (p *Pipeline) failureCode(stageCtx context.Context, err error) string {
	switch {
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return models.CodeTimeout
	case p.ctx.Err() != nil || errors.Is(err, context.Canceled):
		return models.CodeInterrupted
	}
	return models.ErrorCode(err)
}
