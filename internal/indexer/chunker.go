// Package indexer turns extracted text into embedded chunks and keeps the stores and indexes in step.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// Chunker splits text into paragraph chunks. Paragraphs longer than maxWords are cut into
// overlapping word windows.
type Chunker struct {
	maxWords int
	overlap  int
}

// NewChunker creates a chunker. maxWords <= 0 disables window splitting.
func NewChunker(maxWords, overlap int) *Chunker {
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{maxWords: maxWords, overlap: overlap}
}

// ChunkID returns the id of the index-th chunk of a document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", docID, index)
}

// Chunk splits text into chunks numbered from 0 in reading order. Boundaries depend only on
// text. When the text has at most one paragraph it becomes a single chunk.
func (c *Chunker) Chunk(docID, text string) ([]*models.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to chunk for document %s: %w", docID, models.ErrEmptyInput)
	}
	paragraphs := SplitParagraphs(text)
	var segments []string
	if len(paragraphs) <= 1 {
		segments = []string{Preprocess(text)}
	} else {
		for _, p := range paragraphs {
			segments = append(segments, c.window(Preprocess(p))...)
		}
	}
	chunks := make([]*models.Chunk, len(segments))
	for i, s := range segments {
		chunks[i] = &models.Chunk{
			ID:         ChunkID(docID, i),
			DocumentID: docID,
			Index:      i,
			Content:    s,
		}
	}
	return chunks, nil
}

// window cuts a paragraph into windows of maxWords words sharing overlap words.
func (c *Chunker) window(paragraph string) []string {
	words := strings.Fields(paragraph)
	if c.maxWords <= 0 || len(words) <= c.maxWords {
		return []string{paragraph}
	}
	step := c.maxWords - c.overlap
	if step <= 0 {
		step = 1
	}
	var out []string
	for i := 0; i < len(words); i += step {
		end := i + c.maxWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return out
}
