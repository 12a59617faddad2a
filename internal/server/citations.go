package server

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/citation"
	"github.com/hyperjump/shiori/internal/models"
)

type registerCitationRequest struct {
	CitationKey string `json:"citationKey"`
}

type formatCitationRequest struct {
	Reference models.Reference `json:"reference"`
	Style     string           `json:"style"`
}

// FormatCitationResponse is a rendered reference.
type FormatCitationResponse struct {
	Formatted string `json:"formatted"`
	Style     string `json:"style"`
}

type insertCitationRequest struct {
	DocumentID string `json:"documentId"`
	ChunkID    string `json:"chunkId"`
	Style      string `json:"style"`
}

// InsertCitationResponse is the number and rendered reference for a cited chunk.
type InsertCitationResponse struct {
	CitationKey string `json:"citationKey"`
	models.Registration
	Formatted string `json:"formatted"`
	Style     string `json:"style"`
}

// CitationList holds every registered citation in number order.
type CitationList struct {
	Citations []models.CitationRecord `json:"citations"`
	Total     int                     `json:"total"`
}

func (s *Server) handleRegisterCitation(w http.ResponseWriter, r *http.Request) {
	var req registerCitationRequest
	if !s.decode(w, r, &req) {
		return
	}
	reg, err := s.registry.Register(r.Context(), req.CitationKey)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.metrics.CitationRegistered(reg.IsNew)
	s.logger.Debug("citation registered", zap.String("key", req.CitationKey), zap.Int("number", reg.Number), zap.Bool("new", reg.IsNew))
	s.respondJSON(w, http.StatusOK, reg)
}

func (s *Server) handleListCitations(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.List(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if records == nil {
		records = []models.CitationRecord{}
	}
	s.respondJSON(w, http.StatusOK, CitationList{Citations: records, Total: len(records)})
}

func (s *Server) handleFormatCitation(w http.ResponseWriter, r *http.Request) {
	var req formatCitationRequest
	if !s.decode(w, r, &req) {
		return
	}
	style, err := citation.NormalizeStyle(req.Style)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	formatted, err := citation.Format(req.Reference, style)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, FormatCitationResponse{Formatted: formatted, Style: style})
}

// handleInsertCitation numbers a chunk found by search and renders its document's reference.
// An unknown style fails before a number is assigned.
func (s *Server) handleInsertCitation(w http.ResponseWriter, r *http.Request) {
	var req insertCitationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocumentID == "" || req.ChunkID == "" {
		s.respondErr(w, fmt.Errorf("documentId and chunkId are required: %w", models.ErrInvalidArgument))
		return
	}
	ctx := r.Context()
	doc, err := s.storage.GetDocument(ctx, req.DocumentID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	chunk, err := s.storage.GetChunk(ctx, req.ChunkID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if chunk.DocumentID != doc.ID {
		s.respondErr(w, fmt.Errorf("chunk %s of document %s: %w", req.ChunkID, req.DocumentID, models.ErrNotFound))
		return
	}
	style, err := citation.NormalizeStyle(req.Style)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	formatted, err := citation.Format(models.ReferenceFromMetadata(doc.Metadata, doc.Filename), style)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	key := citation.Key(doc.ID, chunk.ID)
	reg, err := s.registry.Register(ctx, key)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.metrics.CitationRegistered(reg.IsNew)
	s.respondJSON(w, http.StatusOK, InsertCitationResponse{
		CitationKey:  key,
		Registration: *reg,
		Formatted:    formatted,
		Style:        style,
	})
}
