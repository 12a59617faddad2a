package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// WatchDirectories lists the inbox directories after a change.
type WatchDirectories struct {
	Directories []string `json:"directories"`
}

type watchAddRequest struct {
	Path string `json:"path"`
	// Sync uploads files already in the directory; true when omitted.
	Sync *bool `json:"sync,omitempty"`
}

// requireWatch answers 501 when the server runs without an inbox watcher.
func (s *Server) requireWatch(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.watch == nil {
			s.respondError(w, http.StatusNotImplemented, "inbox watching is not enabled")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, WatchDirectories{Directories: s.watch.Directories()})
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	var req watchAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	dir, err := existingDirectory(req.Path)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	if err := s.watch.AddDirectory(dir, syncExisting); err != nil {
		s.respondErr(w, fmt.Errorf("watch %s: %w", dir, err))
		return
	}
	s.logger.Info("inbox directory added", zap.String("path", dir), zap.Bool("sync", syncExisting))
	s.respondJSON(w, http.StatusCreated, WatchDirectories{Directories: s.saveWatchDirectories()})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondErr(w, fmt.Errorf("path query parameter is required: %w", models.ErrInvalidArgument))
		return
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		s.respondErr(w, fmt.Errorf("path %q: %w", path, models.ErrInvalidArgument))
		return
	}
	if err := s.watch.RemoveDirectory(dir); err != nil {
		s.respondErr(w, fmt.Errorf("unwatch %s: %w", dir, err))
		return
	}
	s.logger.Info("inbox directory removed", zap.String("path", dir))
	s.respondJSON(w, http.StatusOK, WatchDirectories{Directories: s.saveWatchDirectories()})
}

// existingDirectory resolves path to an absolute directory that exists.
func existingDirectory(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required: %w", models.ErrInvalidArgument)
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, models.ErrInvalidArgument)
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("directory %s: %w", dir, models.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory: %w", dir, models.ErrInvalidArgument)
	}
	return dir, nil
}

// saveWatchDirectories writes the current directories to the loaded config file and returns them.
func (s *Server) saveWatchDirectories() []string {
	dirs := s.watch.Directories()
	if s.configPath == "" {
		return dirs
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = dirs
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to save watch directories", zap.String("config", s.configPath), zap.Error(err))
	}
	return dirs
}
