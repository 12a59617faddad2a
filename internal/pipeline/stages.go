package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
)

// runExtraction moves a document's extraction phase through processing to completed or failed.
func (p *Pipeline) runExtraction(id string) (*models.ExtractionResult, error) {
	unlock := p.locks.Lock(id)
	defer unlock()
	start := time.Now()

	// State writes outlive the stage context.
	ctx := context.Background()
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.ProcessingStatus = models.StatusProcessing
	doc.ErrorCode, doc.ErrorMessage = "", ""
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	p.logStage(doc.ID, StageExtract, models.StatusProcessing, 0)

	stageCtx, cancel := p.stageContext(p.config.ExtractTimeout)
	defer cancel()

	content, err := p.store.GetFile(stageCtx, id)
	if err != nil {
		return p.failExtraction(stageCtx, doc, err, start)
	}
	out, err := p.extractor.Extract(stageCtx, content, doc.FileType)
	if err != nil {
		return p.failExtraction(stageCtx, doc, err, start)
	}

	doc.ExtractedText = out.Text
	doc.PageCount = out.PageCount
	doc.Metadata = models.MergeMetadata(out.Metadata, doc.Metadata)
	doc.ProcessingStatus = models.StatusCompleted
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	p.finishStage(doc.ID, StageExtract, models.StatusCompleted, start)

	return &models.ExtractionResult{
		Success:    true,
		DocumentID: doc.ID,
		Text:       doc.ExtractedText,
		PageCount:  doc.PageCount,
		Metadata:   doc.Metadata,
	}, nil
}

func (p *Pipeline) failExtraction(stageCtx context.Context, doc *models.Document, cause error, start time.Time) (*models.ExtractionResult, error) {
	code := p.failureCode(stageCtx, cause)
	msg := failureMessage(code, StageExtract, p.config.ExtractTimeout, cause)

	doc.ProcessingStatus = models.StatusFailed
	doc.ErrorCode, doc.ErrorMessage = code, msg
	if err := p.store.UpdateDocument(context.Background(), doc); err != nil {
		p.logger.Error("failed to record extraction failure", zap.String("document_id", doc.ID), zap.Error(err))
	}
	p.finishStage(doc.ID, StageExtract, models.StatusFailed, start, zap.String("code", code), zap.String("error", msg))

	var stageErr *models.ExtractionError
	if !errors.As(cause, &stageErr) || stageErr.Code != code {
		stageErr = models.NewExtractionError(code, msg, cause)
	}
	return &models.ExtractionResult{
		Success:    false,
		DocumentID: doc.ID,
		ErrorCode:  code,
		Error:      msg,
	}, stageErr
}

// runVectorization moves a document's vectorization phase through processing to completed or
// failed. An empty text means the stored extracted text.
func (p *Pipeline) runVectorization(id, text string) ([]*models.Chunk, error) {
	unlock := p.locks.Lock(id)
	defer unlock()
	start := time.Now()

	ctx := context.Background()
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = doc.ExtractedText
	} else if doc.ExtractedText == "" {
		doc.ExtractedText = text
	}
	doc.VectorizationStatus = models.StatusProcessing
	doc.ErrorCode, doc.ErrorMessage = "", ""
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	p.logStage(doc.ID, StageVectorize, models.StatusProcessing, 0)

	stageCtx, cancel := p.stageContext(p.config.VectorizeTimeout)
	defer cancel()

	chunks, err := p.vectorizer.IndexDocument(stageCtx, doc, text)
	if err != nil {
		code := p.failureCode(stageCtx, err)
		msg := failureMessage(code, StageVectorize, p.config.VectorizeTimeout, err)
		doc.VectorizationStatus = models.StatusFailed
		doc.ErrorCode, doc.ErrorMessage = code, msg
		if cur, gerr := p.store.GetDocument(ctx, id); gerr == nil {
			doc.ChunkCount = cur.ChunkCount
		}
		if uerr := p.store.UpdateDocument(ctx, doc); uerr != nil {
			p.logger.Error("failed to record vectorization failure", zap.String("document_id", doc.ID), zap.Error(uerr))
		}
		p.finishStage(doc.ID, StageVectorize, models.StatusFailed, start, zap.String("code", code), zap.String("error", msg))
		return nil, fmt.Errorf("vectorize document %s: %w", id, err)
	}

	doc.ChunkCount = len(chunks)
	doc.VectorizationStatus = models.StatusCompleted
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	p.finishStage(doc.ID, StageVectorize, models.StatusCompleted, start, zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func failureMessage(code, stage string, timeout time.Duration, err error) string {
	switch code {
	case models.CodeTimeout:
		return fmt.Sprintf("%s timed out after %s", stage, timeout)
	case models.CodeInterrupted:
		return fmt.Sprintf("%s was interrupted by shutdown", stage)
	}
	return err.Error()
}

func (p *Pipeline) finishStage(id, stage string, status models.Status, start time.Time, fields ...zap.Field) {
	d := time.Since(start)
	p.metrics.ObserveStage(stage, string(status), d)
	p.logStage(id, stage, status, d, fields...)
}

func (p *Pipeline) logStage(id, stage string, status models.Status, d time.Duration, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("document_id", id),
		zap.String("stage", stage),
		zap.String("status", string(status)),
		zap.Duration("duration", d),
	}, fields...)
	if status == models.StatusFailed {
		p.logger.Warn("pipeline stage", fields...)
		return
	}
	p.logger.Info("pipeline stage", fields...)
}
