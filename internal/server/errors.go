package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
)

// statusForError maps domain errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrEmptyInput),
		errors.Is(err, models.ErrQueryTooShort):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// respondErr writes err with its mapped status. Extraction errors also carry their code.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	body := map[string]string{"error": err.Error()}
	var ee *models.ExtractionError
	if errors.As(err, &ee) {
		body["code"] = ee.Code
	}
	s.respondJSON(w, status, body)
}
