// Package models defines the data structures shared by the pipeline, search and citation packages.
package models

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// FileType is the MIME type of an uploaded document.
type FileType string

const (
	FileTypePDF  FileType = "application/pdf"
	FileTypeDOCX FileType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	FileTypeTXT  FileType = "text/plain"
)

// Extension returns the canonical file extension for the type, including the dot.
func (f FileType) Extension() string {
	switch f {
	case FileTypePDF:
		return ".pdf"
	case FileTypeDOCX:
		return ".docx"
	case FileTypeTXT:
		return ".txt"
	}
	return ""
}

// ParseFileType resolves a MIME type (parameters allowed), a bare extension ("pdf", ".pdf")
// or a filename to one of the supported file types.
func ParseFileType(s string) (FileType, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "", false
	}
	if strings.Contains(s, "/") {
		if mt, _, err := mime.ParseMediaType(s); err == nil {
			switch FileType(mt) {
			case FileTypePDF, FileTypeDOCX, FileTypeTXT:
				return FileType(mt), true
			}
		}
	}
	ext := s
	if e := filepath.Ext(s); e != "" {
		ext = e
	}
	switch strings.TrimPrefix(ext, ".") {
	case "pdf":
		return FileTypePDF, true
	case "docx":
		return FileTypeDOCX, true
	case "txt", "text":
		return FileTypeTXT, true
	}
	return "", false
}

// Status is the state of one pipeline phase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Metadata holds bibliographic fields discovered during extraction. Every field is optional.
type Metadata struct {
	Title    string   `json:"title,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no field was discovered.
func (m *Metadata) IsEmpty() bool {
	return m == nil || (m.Title == "" && len(m.Authors) == 0 && m.Year == 0 && m.DOI == "" &&
		m.Journal == "" && m.Abstract == "" && len(m.Keywords) == 0)
}

// MergeMetadata returns primary with its empty fields filled from fallback. Either may be nil.
func MergeMetadata(primary, fallback *Metadata) *Metadata {
	if primary == nil {
		if fallback == nil {
			return nil
		}
		m := *fallback
		return &m
	}
	m := *primary
	if fallback == nil {
		return &m
	}
	if m.Title == "" {
		m.Title = fallback.Title
	}
	if len(m.Authors) == 0 {
		m.Authors = fallback.Authors
	}
	if m.Year == 0 {
		m.Year = fallback.Year
	}
	if m.DOI == "" {
		m.DOI = fallback.DOI
	}
	if m.Journal == "" {
		m.Journal = fallback.Journal
	}
	if m.Abstract == "" {
		m.Abstract = fallback.Abstract
	}
	if len(m.Keywords) == 0 {
		m.Keywords = fallback.Keywords
	}
	return &m
}

// Document is an uploaded file and the state of its pipeline.
type Document struct {
	ID                  string    `json:"id"`
	Filename            string    `json:"filename"`
	FileType            FileType  `json:"fileType"`
	Size                int64     `json:"size"`
	UploadTime          time.Time `json:"uploadTime"`
	ProcessingStatus    Status    `json:"processingStatus"`
	VectorizationStatus Status    `json:"vectorizationStatus"`
	ExtractedText       string    `json:"extractedText,omitempty"`
	PageCount           int       `json:"pageCount,omitempty"`
	Metadata            *Metadata `json:"metadata,omitempty"`
	ChunkCount          int       `json:"chunkCount"`
	ErrorCode           string    `json:"errorCode,omitempty"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Searchable reports whether both phases completed.
func (d *Document) Searchable() bool {
	return d.ProcessingStatus == StatusCompleted && d.VectorizationStatus == StatusCompleted
}

// Title returns the discovered title, falling back to the filename.
func (d *Document) Title() string {
	if d.Metadata != nil && d.Metadata.Title != "" {
		return d.Metadata.Title
	}
	return d.Filename
}

// Chunk is a segment of a document's extracted text with its embedding.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UploadInput is a file handed to the pipeline.
type UploadInput struct {
	// ID is optional; a random id is generated when empty.
	ID       string
	Filename string
	// ContentType may be a MIME type or empty, in which case the filename extension decides.
	ContentType string
	Content     []byte
}

// ExtractionResult is the outcome of the extraction stage.
type ExtractionResult struct {
	Success    bool      `json:"success"`
	DocumentID string    `json:"documentId,omitempty"`
	Text       string    `json:"text,omitempty"`
	PageCount  int       `json:"pageCount,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Error      string    `json:"error,omitempty"`
}
