package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	// multipartSlack covers form boundaries and headers around the uploaded file.
	multipartSlack = 1 << 20
)

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	DocumentID string           `json:"documentId"`
	Document   *models.Document `json:"document"`
}

// DocumentList is one page of the library.
type DocumentList struct {
	Documents  []*models.Document `json:"documents"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}

// ChunkList holds the chunks of one document.
type ChunkList struct {
	DocumentID string          `json:"documentId"`
	Chunks     []*models.Chunk `json:"chunks"`
}

// VectorizeResponse is the body of a successful vectorization.
type VectorizeResponse struct {
	Success    bool           `json:"success"`
	DocumentID string         `json:"documentId"`
	ChunkCount int            `json:"chunkCount"`
	Chunks     []ChunkSummary `json:"chunks"`
}

// ChunkSummary is a chunk without its embedding or timestamps.
type ChunkSummary struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// StatusResponse describes the library and the server's configuration.
type StatusResponse struct {
	Documents           int64  `json:"documents"`
	Chunks              int64  `json:"chunks"`
	VectorIndexSize     int    `json:"vectorIndexSize"`
	KeywordIndexSize    uint64 `json:"keywordIndexSize"`
	EmbeddingProvider   string `json:"embeddingProvider"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	CitationBackend     string `json:"citationBackend"`
	Citations           int    `json:"citations"`
	DiskUsageBytes      *int64 `json:"diskUsageBytes,omitempty"`
	DatabasePath        string `json:"databasePath,omitempty"`
	BleveIndexPath      string `json:"bleveIndexPath,omitempty"`
}

type extractRequest struct {
	DocumentID string `json:"documentId"`
	FileType   string `json:"fileType"`
}

type vectorizeRequest struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.config.Server.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "could not read file")
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("size", len(content)))

	doc, err := s.pipeline.Upload(r.Context(), &models.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, UploadResponse{DocumentID: doc.ID, Document: doc})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		s.respondError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit < 1 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	ctx := r.Context()
	total, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	docs, err := s.storage.ListDocuments(ctx, (page-1)*limit, limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, DocumentList{
		Documents:  docs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	if _, err := s.storage.GetDocument(ctx, id); err != nil {
		s.respondErr(w, err)
		return
	}
	chunks, err := s.storage.GetChunksByDocumentID(ctx, id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if chunks == nil {
		chunks = []*models.Chunk{}
	}
	s.respondJSON(w, http.StatusOK, ChunkList{DocumentID: id, Chunks: chunks})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, doc)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.pipeline.ExtractText(r.Context(), req.DocumentID, req.FileType)
	if result == nil {
		s.respondErr(w, err)
		return
	}
	if !result.Success {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		s.respondJSON(w, status, result)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	var req vectorizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	chunks, err := s.pipeline.VectorizeDocument(r.Context(), req.DocumentID, req.Text)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp := VectorizeResponse{
		Success:    true,
		DocumentID: req.DocumentID,
		ChunkCount: len(chunks),
		Chunks:     make([]ChunkSummary, len(chunks)),
	}
	for i, c := range chunks {
		resp.Chunks[i] = ChunkSummary{ID: c.ID, Index: c.Index, Content: c.Content}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if !s.decode(w, r, &query) {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.engine.SearchChunks(r.Context(), &query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	citations, err := s.registry.Count(ctx)
	if err != nil {
		s.logger.Error("status: count citations failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	resp := StatusResponse{
		Documents:           docCount,
		Chunks:              chunkCount,
		VectorIndexSize:     s.engine.VectorIndexSize(),
		KeywordIndexSize:    s.engine.KeywordDocCount(),
		EmbeddingProvider:   s.config.Embedding.Provider,
		EmbeddingDimensions: s.config.Embedding.Dimensions,
		CitationBackend:     s.config.Citation.Backend,
		Citations:           citations,
		DatabasePath:        s.config.Storage.DatabasePath,
		BleveIndexPath:      s.config.Storage.BleveIndexPath,
	}
	paths := append(storage.DatabaseFiles(s.config.Storage.DatabasePath), s.config.Storage.BleveIndexPath)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp.DiskUsageBytes = &diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into v. A body that is not JSON is reported as an internal error.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug("malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
		s.respondErr(w, fmt.Errorf("invalid request body: %w", models.ErrInternal))
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
